package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInFlightTracker_WaitsForRunningWork(t *testing.T) {
	tracker := NewInFlightTracker("test", zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})

	go tracker.Run(context.Background(), func(context.Context) {
		close(started)
		<-release
	})
	<-started

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- tracker.Shutdown(context.Background()) }()

	assert.Eventually(t, tracker.IsShuttingDown, time.Second, 5*time.Millisecond)
	assert.False(t, tracker.Run(context.Background(), func(context.Context) {}), "new work must be refused")

	close(release)
	require.NoError(t, <-shutdownErr)
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("test", zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go tracker.Run(context.Background(), func(context.Context) {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}

func TestPeriodicWorker_RunImmediatelyAndStop(t *testing.T) {
	var runs atomic.Int32
	w := NewPeriodicWorker("rates", time.Hour, true, zap.NewNop())

	w.Start(context.Background(), func(context.Context) { runs.Add(1) })

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestPeriodicWorker_Ticks(t *testing.T) {
	var runs atomic.Int32
	w := NewPeriodicWorker("rates", 10*time.Millisecond, false, zap.NewNop())

	w.Start(context.Background(), func(context.Context) { runs.Add(1) })

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestPeriodicWorker_ShutdownBeforeStart(t *testing.T) {
	w := NewPeriodicWorker("idle", time.Minute, false, zap.NewNop())
	assert.NoError(t, w.Shutdown(context.Background()))
}
