package cascade

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// ErrLoopStopped is returned by Do once the loop no longer accepts tasks.
var ErrLoopStopped = errors.New("cascade: event loop stopped")

// Poster schedules work on an event loop.
type Poster interface {
	// Post queues fn. It reports false when the loop is gone and fn will
	// never run.
	Post(fn func()) bool
}

// EventLoop runs posted tasks one at a time on a single goroutine. All
// Controller state is owned by the loop, so UI events, debounce expiries and
// query completions must all arrive through Post.
type EventLoop struct {
	tasks   chan func()
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
	log     *logger.Logger
}

// NewEventLoop creates a loop with the given task buffer size.
func NewEventLoop(bufSize int, log *logger.Logger) *EventLoop {
	if bufSize < 1 {
		bufSize = 256
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EventLoop{
		tasks: make(chan func(), bufSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Post queues fn, blocking while the buffer is full.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.stop:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.stop:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the loop on a new goroutine until ctx is cancelled or Stop is
// called.
func (l *EventLoop) Start(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.run(ctx)
}

// Stop ends the loop and waits for the running task to return. Tasks still
// queued are dropped.
func (l *EventLoop) Stop() {
	l.once.Do(func() { close(l.stop) })
	if l.started.Load() {
		<-l.done
	}
}

func (l *EventLoop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.stop:
			return
		case <-ctx.Done():
			l.once.Do(func() { close(l.stop) })
			return
		}
	}
}

func (l *EventLoop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("cascade: event loop task panicked", "panic", r)
		}
	}()
	fn()
}
