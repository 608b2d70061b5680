// Package sched provides the single-threaded cooperative scheduling the
// engines run on. Every timer callback and posted command executes on one
// goroutine, so engine code never runs concurrently with itself.
package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("scheduler stopped")

// Timer is a pending one-shot or periodic callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was still
	// pending. Once Stop returns on the scheduler goroutine the callback
	// will not run again.
	Stop() bool
}

// Scheduler creates timers whose callbacks run on the scheduler goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// Runner executes commands on the scheduler goroutine.
type Runner interface {
	Do(fn func()) error
}

// Loop is the production scheduler. Run drains a task queue on the calling
// goroutine; timers and Post enqueue onto it.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	ended atomic.Bool
}

// NewLoop creates a loop. Call Run to start executing tasks.
func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
}

// Run executes queued tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if l.ended.CompareAndSwap(false, true) {
			close(l.done)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post enqueues fn. It reports false if the loop has exited.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a loop callback.
func (l *Loop) Do(fn func()) error {
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
	}
}

type loopTimer struct {
	stopped atomic.Bool
	timer   *time.Timer
	quit    chan struct{}
}

func (t *loopTimer) Stop() bool {
	if !t.stopped.CompareAndSwap(false, true) {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.quit != nil {
		close(t.quit)
	}
	return true
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Every runs fn on the loop each time d elapses until stopped.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &loopTimer{quit: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					if !t.stopped.Load() {
						fn()
					}
				})
			case <-t.quit:
				return
			case <-l.done:
				return
			}
		}
	}()
	return t
}

var (
	_ Scheduler = (*Loop)(nil)
	_ Runner    = (*Loop)(nil)
)
