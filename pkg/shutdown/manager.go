package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Total time taken to shutdown gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	componentShutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_errors_total",
		Help: "Shutdown errors by component",
	}, []string{"component"})
)

// ShutdownFunc stops one component
type ShutdownFunc func(context.Context) error

type component struct {
	name string
	fn   ShutdownFunc
}

// Manager stops registered components in reverse registration order.
// Register the database first and the HTTP servers and scheduler last, so
// nothing is still writing when the pool closes.
type Manager struct {
	logger     *zap.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
	once       sync.Once
}

// NewManager creates a shutdown manager with an overall deadline
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a component
func (m *Manager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, component{name: name, fn: fn})
	m.logger.Debug("Registered shutdown component",
		zap.String("component", name),
		zap.Int("registration_order", len(m.components)),
	)
}

// RegisterHTTPServer registers anything with a Shutdown(ctx) method
func (m *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	m.Register(name, server.Shutdown)
}

// RegisterCloser registers a component whose Close takes no context
func (m *Manager) RegisterCloser(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT/SIGTERM or ctx is done, then shuts down
func (m *Manager) WaitForShutdown(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	m.logger.Info("Shutdown signal received", zap.Duration("timeout", m.timeout))
	m.Shutdown()
}

// Shutdown runs every registered component once, newest first.
// It returns the number of components that failed.
func (m *Manager) Shutdown() int {
	failed := 0
	m.once.Do(func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.mu.Lock()
		components := make([]component, len(m.components))
		copy(components, m.components)
		m.mu.Unlock()

		for i := len(components) - 1; i >= 0; i-- {
			c := components[i]
			if ctx.Err() != nil {
				m.logger.Warn("Shutdown deadline exceeded, skipping component", zap.String("component", c.name))
				failed++
				continue
			}

			compStart := time.Now()
			if err := c.fn(ctx); err != nil {
				failed++
				componentShutdownErrors.WithLabelValues(c.name).Inc()
				m.logger.Error("Component shutdown failed",
					zap.String("component", c.name),
					zap.Error(err),
				)
				continue
			}
			m.logger.Info("Component stopped",
				zap.String("component", c.name),
				zap.Duration("elapsed", time.Since(compStart)),
			)
		}

		shutdownDuration.Observe(time.Since(start).Seconds())
		m.logger.Info("Shutdown complete",
			zap.Int("failed", failed),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
	return failed
}
