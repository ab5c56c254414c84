// Package handlers implements the bot's commands, quiz games, and the
// pagination/callback/poll-answer flows tying them to per-user session state.
package handlers

import (
	"context"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kotobot/bot/dict"
	"github.com/m3rciful/kotobot/bot/fetch"
	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/bot/storage"
	"github.com/m3rciful/kotobot/bot/work"
	"github.com/m3rciful/kotobot/core/telegram/keyboard"
)

// Fixed reply texts. Wording is part of the bot's observable behaviour, do
// not edit casually.
const (
	msgGiveCommand    = "Give me a command first. Use Menu or direct commands. /help for help."
	msgNotRegistered  = "You are not registered. Use /start to register."
	msgAlreadyExists  = "You've already registered."
	msgRegistered     = "The entry for you has been created."
	msgChooseTraining = "Choose what to train"
	msgUnknownCommand = "Unknown command. /help for help."
	msgNoResults      = "No results found."
	msgEnterWord      = "Enter a word to search for."
	msgEnterExample   = "Enter a word to search for in usage examples."
	msgShowMore       = "Show more?"
	msgTimeout        = "Timeout. Stopping."
	msgDone           = "Done."
	msgNothingToGoOn  = "Nothing to continue. Select new command."
	msgGroupsNoGo     = "Groups are not supported yet."
	msgContinue       = "Continue?"
)

// Callback labels. Callback data equals the button label and is matched by
// prefix.
const (
	labelKanaReading = "Kana reading"
	labelWordReading = "Word reading"
	labelWordMeaning = "Word meaning"
	labelListening   = "Listening"
	labelNumerals    = "Numerals"
	labelRandomTest  = "Random test"
	labelOneMore     = "One more"
	labelStop        = "Stop"
)

// Difficulty labels shown by /settings, index is the stored level.
var difficultyLabels = []string{
	"I'm Too Young to Die",
	"Hurt Me Plenty",
	"Ultra Violence",
	"Unthinkable",
}

func quizKeyboard() *tele.ReplyMarkup {
	return keyboard.LabelButtons(
		[]string{labelKanaReading, labelWordReading},
		[]string{labelWordMeaning, labelListening},
		[]string{labelNumerals, labelRandomTest},
	)
}

func continueKeyboard() *tele.ReplyMarkup {
	return keyboard.LabelButtons(
		[]string{labelOneMore},
		[]string{labelStop},
	)
}

func difficultyKeyboard() *tele.ReplyMarkup {
	rows := make([][]string, len(difficultyLabels))
	for i, l := range difficultyLabels {
		rows[i] = []string{l}
	}
	return keyboard.LabelButtons(rows...)
}

func numeralKeyboard() *tele.ReplyMarkup {
	return keyboard.LabelButtons(
		[]string{"一", "二", "三", "四", "五"},
		[]string{"六", "七", "八", "九", "十"},
		[]string{"百", "千", "万", "零", "="},
	)
}

// Config tunes handler behaviour.
type Config struct {
	// WaitTimeout bounds the pagination "Show more?" wait (default 10s).
	WaitTimeout time.Duration
	// PageSize is the number of results sent between prompts (default 4).
	PageSize int
	// JLPTLevel is the default training level for users without one (default 5).
	JLPTLevel int
	// TempDir holds downloaded audio awaiting upload (default os temp dir).
	TempDir string
}

func (c *Config) normalize() {
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 10 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 4
	}
	if c.JLPTLevel <= 0 {
		c.JLPTLevel = 5
	}
}

// Handlers bundles the collaborators behind every command and game.
type Handlers struct {
	cfg      Config
	msgr     Messenger
	sessions *session.Manager
	gate     *session.Gate
	answers  *session.Answers
	users    *storage.Users
	cache    *storage.MediaCache
	dict     *dict.Store
	fetcher  *fetch.Fetcher
	pool     *work.Pool
}

// New wires the handler set. dict may be nil when no dictionary file is
// configured; dictionary-backed flows then answer with no results.
func New(
	cfg Config,
	msgr Messenger,
	sessions *session.Manager,
	gate *session.Gate,
	answers *session.Answers,
	users *storage.Users,
	cache *storage.MediaCache,
	dictStore *dict.Store,
	fetcher *fetch.Fetcher,
	pool *work.Pool,
) *Handlers {
	cfg.normalize()
	return &Handlers{
		cfg:      cfg,
		msgr:     msgr,
		sessions: sessions,
		gate:     gate,
		answers:  answers,
		users:    users,
		cache:    cache,
		dict:     dictStore,
		fetcher:  fetcher,
		pool:     pool,
	}
}

// Registered reports whether the user has a record; lookup failures count as
// unregistered.
func (h *Handlers) Registered(userID int64) bool {
	ok, err := h.users.Exists(context.Background(), userID)
	return err == nil && ok
}

// userLevel resolves the JLPT level a quiz round should use.
func (h *Handlers) userLevel(ctx context.Context, userID int64) int {
	rec, err := h.users.Get(ctx, userID)
	if err == nil && rec.JLPT > 0 {
		return rec.JLPT
	}
	return h.cfg.JLPTLevel
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
