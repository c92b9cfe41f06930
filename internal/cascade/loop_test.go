package cascade

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_RunsTasksInOrder(t *testing.T) {
	loop := NewEventLoop(8, nil)
	loop.Start(context.Background())
	defer loop.Stop()

	var order []int
	for i := 0; i < 5; i++ {
		n := i
		require.True(t, loop.Post(func() { order = append(order, n) }))
	}
	require.NoError(t, loop.Do(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEventLoop_DoWaits(t *testing.T) {
	loop := NewEventLoop(0, nil)
	loop.Start(context.Background())
	defer loop.Stop()

	var ran atomic.Bool
	err := loop.Do(context.Background(), func() {
		time.Sleep(10 * time.Millisecond)
		ran.Store(true)
	})
	require.NoError(t, err)
	assert.True(t, ran.Load())
}

func TestEventLoop_StopRejectsPosts(t *testing.T) {
	loop := NewEventLoop(4, nil)
	loop.Start(context.Background())
	loop.Stop()
	loop.Stop()

	assert.False(t, loop.Post(func() {}))
	assert.ErrorIs(t, loop.Do(context.Background(), func() {}), ErrLoopStopped)
}

func TestEventLoop_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewEventLoop(4, nil)
	loop.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !loop.Post(func() {}) }, time.Second, 5*time.Millisecond)
	loop.Stop()
}

func TestEventLoop_RecoversPanics(t *testing.T) {
	loop := NewEventLoop(4, nil)
	loop.Start(context.Background())
	defer loop.Stop()

	require.True(t, loop.Post(func() { panic("boom") }))

	var ran atomic.Bool
	require.NoError(t, loop.Do(context.Background(), func() { ran.Store(true) }))
	assert.True(t, ran.Load())
}

func TestEventLoop_DoHonoursContext(t *testing.T) {
	loop := NewEventLoop(4, nil)
	// Never started, so the task is queued but never runs.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := loop.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
