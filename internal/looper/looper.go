// Package looper runs closures one at a time on a dedicated goroutine.
//
// Every state transition of the resolver and the host controller executes
// on the same Looper, so their state needs no further locking. Work posted
// from other goroutines (service callbacks, hotplug events, timers) is
// queued in FIFO order.
package looper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrStopped is returned by Sync after the looper has stopped.
var ErrStopped = errors.New("looper: stopped")

// Looper is a single-consumer serial executor.
type Looper struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// New creates a looper. A nil clock means the wall clock.
func New(clk clock.Clock, logger *slog.Logger) *Looper {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Looper{
		clock:  clk,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Clock returns the looper's clock.
func (l *Looper) Clock() clock.Clock {
	return l.clock
}

// Run executes posted work until ctx is done or Stop is called. Work still
// queued at that point is dropped.
func (l *Looper) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.Stop()

	for {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return nil
		}
		var next func()
		if len(l.queue) > 0 {
			next = l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
		}
		l.mu.Unlock()

		if next != nil {
			l.exec(next)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *Looper) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("looper task panicked", "panic", r)
		}
	}()
	fn()
}

// Stop makes Run return after the task in progress. Further posts are
// rejected.
func (l *Looper) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run has returned.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// Post queues fn. It reports false if the looper has stopped.
func (l *Looper) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Delayed is a pending PostDelayed. Stop and Active must be called on the
// looper.
type Delayed struct {
	timer     *clock.Timer
	cancelled bool
	fired     bool
}

// Stop cancels the delayed work. Once Stop returns, the work will not run,
// even if its timer already expired and the work is sitting in the queue.
func (d *Delayed) Stop() {
	if d == nil {
		return
	}
	d.cancelled = true
	d.timer.Stop()
}

// Active reports whether the work is still pending.
func (d *Delayed) Active() bool {
	return d != nil && !d.cancelled && !d.fired
}

// PostDelayed queues fn after delay. It must be called on the looper.
func (l *Looper) PostDelayed(delay time.Duration, fn func()) *Delayed {
	d := &Delayed{}
	d.timer = l.clock.AfterFunc(delay, func() {
		l.Post(func() {
			if d.cancelled {
				return
			}
			d.fired = true
			fn()
		})
	})
	return d
}

// Sync runs fn on the looper and waits for it to finish.
func (l *Looper) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
