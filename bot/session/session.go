// Package session owns per-user conversational state: the pending multi-turn
// command, the pagination wait gate, the one-shot poll-answer registry, and
// in-progress numerals game rounds. All state is keyed by Telegram user ID
// and guarded by per-map mutexes; no lock is held across a blocking call.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/kotobot/core/logger"
)

// Command enumerates the multi-turn commands a user can be inside.
type Command int

const (
	CommandNone Command = iota
	CommandSearchWord
	CommandSearchExample
	CommandExplainWord
	GameKanaReading
	GameWordReading
	GameWordMeaning
	GameListening
	GameNumerals
)

func (c Command) String() string {
	switch c {
	case CommandSearchWord:
		return "search_word"
	case CommandSearchExample:
		return "search_example"
	case CommandExplainWord:
		return "explain_word"
	case GameKanaReading:
		return "game_kana_reading"
	case GameWordReading:
		return "game_word_reading"
	case GameWordMeaning:
		return "game_word_meaning"
	case GameListening:
		return "game_listening"
	case GameNumerals:
		return "game_numerals"
	default:
		return "none"
	}
}

// IsGame reports whether the command is a quiz game that "One more" can restart.
func (c Command) IsGame() bool {
	switch c {
	case GameKanaReading, GameWordReading, GameWordMeaning, GameListening, GameNumerals:
		return true
	}
	return false
}

// MessageRef points at a previously sent message so a handler can edit it.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// NumeralsGame is one in-progress numerals round for a single user.
type NumeralsGame struct {
	Target int
	Entry  string
	Kana   string
	Prompt MessageRef
	Reply  MessageRef
}

// Manager tracks pending commands and per-user game rounds.
type Manager struct {
	pendingMu sync.Mutex
	pending   map[int64]Command

	gamesMu sync.Mutex
	games   map[int64]NumeralsGame

	// kana reading rounds keep the expected romaji answer here
	answersMu sync.Mutex
	expected  map[int64]string
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{
		pending:  make(map[int64]Command),
		games:    make(map[int64]NumeralsGame),
		expected: make(map[int64]string),
	}
}

// Pending returns the user's pending command, if any.
func (m *Manager) Pending(userID int64) (Command, bool) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	cmd, ok := m.pending[userID]
	return cmd, ok
}

// SetPending records the latest dispatched command, overwriting any prior one.
func (m *Manager) SetPending(ctx context.Context, userID int64, cmd Command) {
	m.pendingMu.Lock()
	m.pending[userID] = cmd
	m.pendingMu.Unlock()
	logger.Debug(ctx, "session", "state.set",
		slog.Int64("user_id", userID),
		slog.String("command", cmd.String()),
	)
}

// ClearPending removes the user's pending command ("stop" semantics).
func (m *Manager) ClearPending(ctx context.Context, userID int64) {
	m.pendingMu.Lock()
	delete(m.pending, userID)
	m.pendingMu.Unlock()
	logger.Debug(ctx, "session", "state.clear",
		slog.Int64("user_id", userID),
	)
}

// Game returns a copy of the user's in-progress numerals round.
func (m *Manager) Game(userID int64) (NumeralsGame, bool) {
	m.gamesMu.Lock()
	defer m.gamesMu.Unlock()
	g, ok := m.games[userID]
	return g, ok
}

// SetGame starts or replaces the user's numerals round.
func (m *Manager) SetGame(userID int64, g NumeralsGame) {
	m.gamesMu.Lock()
	m.games[userID] = g
	m.gamesMu.Unlock()
}

// UpdateGame applies fn to the stored round atomically. It reports false and
// leaves the map untouched when no round is in progress.
func (m *Manager) UpdateGame(userID int64, fn func(*NumeralsGame)) (NumeralsGame, bool) {
	m.gamesMu.Lock()
	defer m.gamesMu.Unlock()
	g, ok := m.games[userID]
	if !ok {
		return NumeralsGame{}, false
	}
	fn(&g)
	m.games[userID] = g
	return g, true
}

// EndGame removes the user's numerals round.
func (m *Manager) EndGame(userID int64) {
	m.gamesMu.Lock()
	delete(m.games, userID)
	m.gamesMu.Unlock()
}

// GameInProgress reports whether the user currently has a numerals round open.
// Unmatched keypad callbacks route to the numerals handler only when true.
func (m *Manager) GameInProgress(userID int64) bool {
	m.gamesMu.Lock()
	defer m.gamesMu.Unlock()
	_, ok := m.games[userID]
	return ok
}

// SetExpectedAnswer stores the romaji answer for the user's kana round.
func (m *Manager) SetExpectedAnswer(userID int64, romaji string) {
	m.answersMu.Lock()
	m.expected[userID] = romaji
	m.answersMu.Unlock()
}

// TakeExpectedAnswer removes and returns the stored kana-round answer.
func (m *Manager) TakeExpectedAnswer(userID int64) (string, bool) {
	m.answersMu.Lock()
	defer m.answersMu.Unlock()
	want, ok := m.expected[userID]
	if ok {
		delete(m.expected, userID)
	}
	return want, ok
}
