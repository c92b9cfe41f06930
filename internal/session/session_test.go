package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

func TestManager_CreateGetRemove(t *testing.T) {
	m := NewManager(time.Hour, time.Hour, nil)
	s := m.Create(context.Background())

	require.NotEmpty(t, s.ID)
	assert.Same(t, s, m.Get(s.ID))
	assert.Equal(t, 1, m.Len())

	m.Remove(s.ID)
	assert.Nil(t, m.Get(s.ID))
	assert.Zero(t, m.Len())

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("removed session was not closed")
	}
	assert.False(t, s.Loop.Post(func() {}))
}

func TestManager_GetEvictsIdle(t *testing.T) {
	m := NewManager(time.Hour, time.Minute, nil)
	s := m.Create(context.Background())

	s.mu.Lock()
	s.lastActiveAt = time.Now().Add(-2 * time.Minute)
	s.mu.Unlock()

	assert.Nil(t, m.Get(s.ID))
	assert.Zero(t, m.Len())
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager(time.Hour, time.Minute, nil)
	fresh := m.Create(context.Background())
	old := m.Create(context.Background())
	idle := m.Create(context.Background())

	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	idle.mu.Lock()
	idle.lastActiveAt = time.Now().Add(-time.Hour)
	idle.mu.Unlock()

	assert.Equal(t, 2, m.Cleanup())
	assert.Equal(t, 1, m.Len())
	assert.Same(t, fresh, m.Get(fresh.ID))

	fresh.Touch()
	assert.False(t, fresh.IsIdle(time.Minute))
}

func TestManager_RunClosesAllOnShutdown(t *testing.T) {
	m := NewManager(0, 0, nil)
	s := m.Create(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 10*time.Millisecond) }()
	cancel()

	require.NoError(t, <-done)
	assert.Zero(t, m.Len())
	<-s.Done()
}

func TestSession_CloseClosesController(t *testing.T) {
	m := NewManager(time.Hour, time.Hour, nil)
	s := m.Create(context.Background())

	src := cascade.SourceFunc(func(context.Context, address.Level, string, string) []address.Record { return nil })
	ctrl := cascade.NewController(s.Context(), src, s.Loop)

	var attachErr, again error
	require.NoError(t, s.Loop.Do(context.Background(), func() {
		attachErr = s.Attach(ctrl)
		again = s.Attach(ctrl)
	}))
	require.NoError(t, attachErr)
	assert.ErrorIs(t, again, ErrAttached)

	s.Close()
	s.Close()
	assert.ErrorIs(t, ctrl.Clear(address.LevelRegion), cascade.ErrClosed)
}

func TestSession_ParentContextStopsLoop(t *testing.T) {
	m := NewManager(time.Hour, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s := m.Create(ctx)
	cancel()

	<-s.Done()
	assert.Eventually(t, func() bool { return !s.Loop.Post(func() {}) }, time.Second, 5*time.Millisecond)
	m.Remove(s.ID)
}
