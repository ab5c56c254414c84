package session

import (
	"context"
	"sync"

	"github.com/m3rciful/kotobot/core/logger"
	"log/slog"
)

// AnswerFunc consumes the option index a user picked in a quiz poll.
type AnswerFunc func(optionIndex int)

// Answers correlates quiz polls with the user's eventual poll answer. At most
// one callback is pending per user; registering again overwrites it.
type Answers struct {
	mu        sync.Mutex
	callbacks map[int64]AnswerFunc
}

// NewAnswers returns an empty registry.
func NewAnswers() *Answers {
	return &Answers{callbacks: make(map[int64]AnswerFunc)}
}

// Register stores fn as the user's pending answer callback.
func (a *Answers) Register(ctx context.Context, userID int64, fn AnswerFunc) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.callbacks[userID] = fn
	a.mu.Unlock()
	logger.Debug(ctx, "session", "answer.register",
		slog.Int64("user_id", userID),
	)
}

// Unregister drops any pending callback for the user.
func (a *Answers) Unregister(userID int64) {
	a.mu.Lock()
	delete(a.callbacks, userID)
	a.mu.Unlock()
}

// Dispatch removes the user's pending callback and invokes it with the
// chosen option. Removal happens under the lock, so a duplicate answer
// arriving concurrently finds nothing and is a no-op. Reports whether a
// callback ran.
func (a *Answers) Dispatch(ctx context.Context, userID int64, optionIndex int) bool {
	a.mu.Lock()
	fn, ok := a.callbacks[userID]
	if ok {
		delete(a.callbacks, userID)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	logger.Debug(ctx, "session", "answer.dispatch",
		slog.Int64("user_id", userID),
		slog.Int("option", optionIndex),
	)
	fn(optionIndex)
	return true
}
