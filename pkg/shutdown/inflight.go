package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InFlightTracker counts running work so shutdown can wait for it.
// Once Shutdown starts, new work is refused.
type InFlightTracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	logger *zap.Logger
	name   string
}

// NewInFlightTracker creates a tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{logger: logger, name: name}
}

// Run executes fn as tracked work. Returns false without running fn when
// shutdown has begun.
func (t *InFlightTracker) Run(ctx context.Context, fn func(context.Context)) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()
	fn(ctx)
	return true
}

// IsShuttingDown reports whether new work is being refused
func (t *InFlightTracker) IsShuttingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Shutdown refuses new work and waits for running work or ctx
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("In-flight work drained", zap.String("tracker", t.name))
		return nil
	case <-ctx.Done():
		t.logger.Warn("Shutdown timeout with work still running", zap.String("tracker", t.name))
		return ctx.Err()
	}
}

// PeriodicWorker calls a function on a fixed interval from a single goroutine,
// so runs never overlap.
type PeriodicWorker struct {
	name           string
	interval       time.Duration
	runImmediately bool
	logger         *zap.Logger
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewPeriodicWorker creates a worker. With runImmediately the first run
// happens at Start instead of one interval later.
func NewPeriodicWorker(name string, interval time.Duration, runImmediately bool, logger *zap.Logger) *PeriodicWorker {
	return &PeriodicWorker{
		name:           name,
		interval:       interval,
		runImmediately: runImmediately,
		logger:         logger,
	}
}

// Start launches the loop. work must return promptly once ctx is cancelled.
func (w *PeriodicWorker) Start(parent context.Context, work func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("Periodic worker started",
			zap.String("worker", w.name),
			zap.Duration("interval", w.interval),
		)

		if w.runImmediately {
			work(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Periodic worker stopped", zap.String("worker", w.name))
				return
			case <-ticker.C:
				work(ctx)
			}
		}
	}()
}

// Shutdown cancels the loop and waits for the current run to return
func (w *PeriodicWorker) Shutdown(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
