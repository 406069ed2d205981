package exchangerate

import (
	"context"
	"time"

	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/shutdown"
	"go.uber.org/zap"
)

// Runner is satisfied by *IngestionJob
type Runner interface {
	Run(ctx context.Context) *RunReport
}

// Scheduler runs the ingestion job on an interval and on demand. Both paths
// are tracked so shutdown waits for a run in progress.
type Scheduler struct {
	job     Runner
	worker  *shutdown.PeriodicWorker
	tracker *shutdown.InFlightTracker
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a scheduler. timeout bounds a single run.
func NewScheduler(job Runner, interval, timeout time.Duration, runOnStart bool, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		job:     job,
		worker:  shutdown.NewPeriodicWorker("exchange-rate-ingestion", interval, runOnStart, logger),
		tracker: shutdown.NewInFlightTracker("exchange-rate-ingestion", logger),
		timeout: timeout,
		logger:  logger,
	}
}

// Start launches the periodic loop
func (s *Scheduler) Start(ctx context.Context) {
	s.worker.Start(ctx, func(ctx context.Context) {
		if _, ok := s.RunNow(ctx); !ok {
			s.logger.Info("Skipping scheduled rate ingestion during shutdown")
		}
	})
}

// RunNow runs the job immediately. ok is false when shutdown has begun.
func (s *Scheduler) RunNow(ctx context.Context) (report *RunReport, ok bool) {
	ok = s.tracker.Run(ctx, func(ctx context.Context) {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		report = s.job.Run(runCtx)
	})
	return report, ok
}

// Shutdown stops the loop and waits for any run in progress
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if err := s.worker.Shutdown(ctx); err != nil {
		return err
	}
	return s.tracker.Shutdown(ctx)
}
