package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/kotobot/core/logger"
)

// Signal is the outcome of a pagination wait.
type Signal int

const (
	// SignalStop halts the paginated sequence.
	SignalStop Signal = iota
	// SignalContinue resumes the paginated sequence.
	SignalContinue
	// SignalTimedOut reports that no reply arrived in time. Callers treat it
	// exactly like SignalStop.
	SignalTimedOut
)

func (s Signal) String() string {
	switch s {
	case SignalContinue:
		return "continue"
	case SignalTimedOut:
		return "timed_out"
	default:
		return "stop"
	}
}

// ErrWaitOutstanding is returned by Begin when the user already has an open wait.
var ErrWaitOutstanding = errors.New("session: pagination wait already outstanding")

// Gate suspends a paginated handler until the user presses One more or Stop,
// or a timeout elapses. At most one wait per user may be open; each wait is a
// buffered channel so Resolve never blocks the event intake path.
type Gate struct {
	mu      sync.Mutex
	waiters map[int64]chan Signal
}

// NewGate returns an empty gate.
func NewGate() *Gate {
	return &Gate{waiters: make(map[int64]chan Signal)}
}

// Begin opens a wait entry for the user. The caller is responsible for
// sending the "Show more?" prompt after a successful Begin.
func (g *Gate) Begin(userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.waiters[userID]; ok {
		return ErrWaitOutstanding
	}
	g.waiters[userID] = make(chan Signal, 1)
	return nil
}

// Waiting reports whether the user has an open wait entry.
func (g *Gate) Waiting(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.waiters[userID]
	return ok
}

// Await blocks the calling handler until the wait resolves or timeout
// elapses. Without an open entry it returns SignalStop immediately. The entry
// is always consumed before Await returns.
func (g *Gate) Await(ctx context.Context, userID int64, timeout time.Duration) Signal {
	g.mu.Lock()
	ch, ok := g.waiters[userID]
	g.mu.Unlock()
	if !ok {
		return SignalStop
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var sig Signal
	select {
	case sig = <-ch:
	case <-timer.C:
		sig = SignalTimedOut
	case <-ctx.Done():
		sig = SignalStop
	}

	g.mu.Lock()
	delete(g.waiters, userID)
	g.mu.Unlock()

	if sig == SignalTimedOut {
		// A resolution racing the timer wins if it landed in the buffer.
		select {
		case raced := <-ch:
			sig = raced
		default:
		}
	}

	logger.Debug(ctx, "session", "gate.done",
		slog.Int64("user_id", userID),
		slog.String("signal", sig.String()),
	)
	return sig
}

// Cancel discards the user's open wait entry without resolving it. Used when
// the prompt could not be delivered and nobody will ever Await.
func (g *Gate) Cancel(userID int64) {
	g.mu.Lock()
	delete(g.waiters, userID)
	g.mu.Unlock()
}

// Resolve fulfils the user's open wait with sig and reports whether one was
// waiting. It never blocks: the per-user channel holds one buffered value and
// repeated resolutions of the same wait are dropped.
func (g *Gate) Resolve(userID int64, sig Signal) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.waiters[userID]
	if !ok {
		return false
	}
	select {
	case ch <- sig:
	default:
	}
	return true
}
