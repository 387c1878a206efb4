// Package dispatch serializes state-change callbacks onto one goroutine so
// listeners never observe updates from worker goroutines directly.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher runs fn at some later point, in submission order.
type Dispatcher interface {
	Dispatch(fn func())
}

// Loop drains a queue of callbacks on a single goroutine.
type Loop struct {
	log   *slog.Logger
	queue chan func()
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

var _ Dispatcher = (*Loop)(nil)

// NewLoop creates a loop with a queue of the given size.
func NewLoop(log *slog.Logger, size int) *Loop {
	return &Loop{
		log:   log.With(slog.String("package", "dispatch")),
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Start runs the loop until ctx is done. Callbacks queued before that are
// still drained.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		l.wg.Add(1)

		go l.run(ctx)
	})
}

// Wait blocks until the loop goroutine has exited.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Dispatch queues fn. It blocks while the queue is full and drops fn once the
// loop has stopped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case <-l.done:
		l.log.Debug("dispatch after stop dropped")
	case l.queue <- fn:
	}
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case fn := <-l.queue:
			l.call(ctx, fn)
		case <-ctx.Done():
			l.stopOnce.Do(func() { close(l.done) })
			l.drain(ctx)
			l.log.InfoContext(ctx, "dispatch loop stopped", slog.Any("error", ctx.Err()))

			return
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	for {
		select {
		case fn := <-l.queue:
			l.call(ctx, fn)
		default:
			return
		}
	}
}

func (l *Loop) call(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.ErrorContext(ctx, "dispatched callback panicked", slog.Any("panic", r))
		}
	}()

	fn()
}

// Inline runs every callback immediately on the caller's goroutine.
type Inline struct{}

// Dispatch runs fn.
func (Inline) Dispatch(fn func()) { fn() }
