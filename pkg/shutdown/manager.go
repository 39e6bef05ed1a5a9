// Package shutdown stops the gateway's components in reverse start order
// within one deadline.
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
	totalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "card_gateway_shutdown_duration_seconds",
		Help:    "Wall time of the whole graceful shutdown",
		Buckets: []float64{1, 5, 10, 20, 30},
	})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "card_gateway_component_shutdown_duration_seconds",
		Help:    "Wall time of each shutdown step",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
	}, []string{"component"})

	stepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_gateway_shutdown_errors_total",
		Help: "Shutdown steps that returned an error",
	}, []string{"component"})
)

// ShutdownFunc stops one component
type ShutdownFunc func(context.Context) error

type step struct {
	name string
	fn   ShutdownFunc
}

// Manager runs registered steps sequentially, last registered first. The HTTP
// server is registered last so it stops accepting work before the background
// bin corrections are awaited and the clients they use are closed.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	steps []step
	once  sync.Once
	errs  map[string]error
}

func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

func (m *Manager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	m.steps = append(m.steps, step{name: name, fn: fn})
	m.mu.Unlock()
}

// RegisterHTTPServer registers anything with a context-aware Shutdown
func (m *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	m.Register(name, server.Shutdown)
}

func (m *Manager) RegisterCloser(name string, closer interface{ Close() error }) {
	m.Register(name, func(context.Context) error { return closer.Close() })
}

func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// RegisterWait registers a blocking wait; the step fails with the context
// error when the deadline passes first.
func (m *Manager) RegisterWait(name string, wait func()) {
	m.Register(name, func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			defer close(done)
			wait()
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// WaitForShutdown blocks until SIGINT, SIGTERM or ctx cancellation, then shuts down
func (m *Manager) WaitForShutdown(ctx context.Context) map[string]error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	m.logger.Info("Shutdown requested", zap.Duration("timeout", m.timeout))
	return m.Shutdown()
}

// Shutdown runs every step once and returns the failures by step name.
// Later calls return the first result.
func (m *Manager) Shutdown() map[string]error {
	m.once.Do(func() { m.errs = m.run() })
	return m.errs
}

func (m *Manager) run() map[string]error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	steps := append([]step(nil), m.steps...)
	m.mu.Unlock()

	errs := make(map[string]error)
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		t0 := time.Now()
		err := s.fn(ctx)
		elapsed := time.Since(t0)
		stepDuration.WithLabelValues(s.name).Observe(elapsed.Seconds())

		if err != nil {
			errs[s.name] = err
			stepFailures.WithLabelValues(s.name).Inc()
			m.logger.Error("Shutdown step failed",
				zap.String("component", s.name), zap.Duration("elapsed", elapsed), zap.Error(err))
			continue
		}
		m.logger.Info("Shutdown step done", zap.String("component", s.name), zap.Duration("elapsed", elapsed))
	}

	totalDuration.Observe(time.Since(start).Seconds())
	m.logger.Info("Shutdown complete",
		zap.Int("steps", len(steps)), zap.Int("failed", len(errs)), zap.Duration("elapsed", time.Since(start)))
	return errs
}
