// Package work runs handler side work on a supervised bounded pool so that a
// slow quiz round or download never blocks the Telegram update loop.
package work

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/kotobot/core/logger"
)

var (
	// ErrPoolClosed is returned when submit is attempted after pool stop.
	ErrPoolClosed = errors.New("work: pool closed")
	// ErrPoolFull indicates the queue is saturated and the task was rejected.
	ErrPoolFull = errors.New("work: queue full")
)

// Options controls pool sizing.
type Options struct {
	QueueSize int
	Workers   int
}

type task struct {
	ctx  context.Context
	name string
	run  func(ctx context.Context)
}

// Pool executes named tasks asynchronously. Panics inside a task are
// recovered and logged so one bad round cannot take a worker down.
type Pool struct {
	tasks   chan task
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	pending atomic.Int64
}

// NewPool starts a pool with sane defaults if options are zeroed.
func NewPool(opts Options) *Pool {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	p := &Pool{
		tasks: make(chan task, opts.QueueSize),
		stop:  make(chan struct{}),
	}

	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}

	return p
}

// Submit schedules run for asynchronous execution under the given name.
// The context is passed through to the task for cancellation.
func (p *Pool) Submit(ctx context.Context, name string, run func(ctx context.Context)) error {
	if run == nil {
		return errors.New("work: nil task function")
	}
	select {
	case <-p.stop:
		return ErrPoolClosed
	default:
	}

	t := task{ctx: ctx, name: name, run: run}

	select {
	case p.tasks <- t:
		p.pending.Add(1)
		return nil
	default:
		logger.Warn(ctx, "work", "pool.full",
			slog.String("task", name),
		)
		return ErrPoolFull
	}
}

// Pending reports tasks accepted but not yet finished.
func (p *Pool) Pending() int64 {
	return p.pending.Load()
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		close(p.tasks)
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.runTask(t)
		p.pending.Add(-1)
	}
}

func (p *Pool) runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(t.ctx, "work", "task.panic",
				slog.String("task", t.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	start := time.Now()
	t.run(t.ctx)
	logger.Debug(t.ctx, "work", "task.done",
		slog.String("task", t.name),
		slog.Duration("duration", logger.Took(start)),
	)
}
