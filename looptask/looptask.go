
// Package looptask runs exactly one long-lived cooperative task with
// idempotent start/stop (spec §4.3). It generalizes the ad hoc
// goroutine-plus-channel pattern kcptun uses for its scavenger loop
// (client/main.go's scavenger) into a reusable harness.
package looptask

import (
	"context"
	"sync"

	"github.com/lanxfer/lanxfer/xferr"
)

// Body is the cancellable work a Loop runs. It must observe ctx.Done() at
// natural suspension points and return promptly once it fires.
type Body func(ctx context.Context)

// Loop starts/stops a single long-running task.
type Loop struct {
	body Body

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	disposed bool
	done     chan struct{}
}

// New creates a Loop around body. The task does not start until Run is
// called.
func New(body Body) *Loop {
	return &Loop{body: body}
}

// Run starts the task if it is not already running. Concurrent calls are
// idempotent: exactly one task starts. Returns Disposed if Close was called.
func (l *Loop) Run() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disposed {
		return xferr.New(xferr.Disposed, "looptask: run on closed loop")
	}
	if l.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		l.body(ctx)
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()
	return nil
}

// Stop signals cancellation. Safe to call multiple times; does not block
// for the task to actually finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close signals cancellation, releases the cancellation source, and
// prevents further Run calls.
func (l *Loop) Close() {
	l.mu.Lock()
	l.disposed = true
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the most recently started task body has returned. It is
// a test/shutdown convenience, not part of the spec's minimal surface.
func (l *Loop) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}
