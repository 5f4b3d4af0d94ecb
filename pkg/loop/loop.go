// Package loop runs tasks one at a time on a single goroutine. Everything
// that touches a dom.Document is posted here.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when posting to a loop that has finished running.
var ErrStopped = errors.New("loop: stopped")

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler schedules callbacks after a delay. Callbacks run on the
// scheduler's task goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop is a single-threaded task queue.
type Loop struct {
	mu          sync.Mutex
	queue       []func()
	wake        chan struct{}
	stopped     bool
	checkpoints []func()
}

// New returns an idle loop. Call Run to start processing.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Checkpoint registers fn to run after every task, typically to flush
// mutation observers.
func (l *Loop) Checkpoint(fn func()) {
	l.mu.Lock()
	l.checkpoints = append(l.checkpoints, fn)
	l.mu.Unlock()
}

// Post queues fn. It returns false when the loop has stopped.
func (l *Loop) Post(fn func()) bool {
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

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task already running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Run processes tasks until ctx is done. Queued tasks are dropped on exit.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()
	for {
		for {
			fn, checkpoints, ok := l.next()
			if !ok {
				break
			}
			fn()
			for _, cp := range checkpoints {
				cp()
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), []func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, l.checkpoints, true
}
