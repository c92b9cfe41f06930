// Package session manages the lifecycle of cascade sessions: one per
// WebSocket connection, each owning an event loop and, once attached, a
// cascade controller.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/addrcascade/internal/cascade"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// ErrAttached is returned when a session already has a controller.
var ErrAttached = errors.New("session: already attached")

const (
	// DefaultMaxAge bounds the total lifetime of a session.
	DefaultMaxAge = 24 * time.Hour
	// DefaultIdleTimeout evicts sessions with no client activity.
	DefaultIdleTimeout = 30 * time.Minute

	loopBuffer = 256
)

// Session holds per-connection cascade state.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Loop runs every controller interaction of this session.
	Loop *cascade.EventLoop

	mu           sync.Mutex
	lastActiveAt time.Time

	ctrl *cascade.Controller // loop-owned

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newSession(parent context.Context, log *logger.Logger) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		lastActiveAt: now,
	}
	s.ctx, s.cancel = context.WithCancel(parent)
	s.Loop = cascade.NewEventLoop(loopBuffer, log.WithSession(s.ID))
	s.Loop.Start(s.ctx)
	return s
}

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// LastActiveAt returns the last activity timestamp.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && time.Since(s.LastActiveAt()) > timeout
}

// Attach installs the session's controller. Must run on the loop.
func (s *Session) Attach(ctrl *cascade.Controller) error {
	if s.ctrl != nil {
		return ErrAttached
	}
	s.ctrl = ctrl
	return nil
}

// Controller returns the attached controller, or nil. Must run on the loop.
func (s *Session) Controller() *cascade.Controller {
	return s.ctrl
}

// Close closes the controller and stops the loop. Safe to call more than
// once and from any goroutine.
func (s *Session) Close() {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// Errors mean the loop is already gone, and the controller with it.
		_ = s.Loop.Do(ctx, func() {
			if s.ctrl != nil {
				s.ctrl.Close()
			}
		})
		s.cancel()
		s.Loop.Stop()
	})
}
