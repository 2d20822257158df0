package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chessreview/engine/internal/logging"
)

// Manager coordinates graceful shutdown of multiple components.
type Manager struct {
	logger        logging.ContextLogger
	shutdownFuncs []namedFunc
	mu            sync.Mutex
	done          chan struct{}
	shutdownOnce  sync.Once
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

// NewManager creates a new shutdown manager.
func NewManager(logger logging.ContextLogger) *Manager {
	return &Manager{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a shutdown function. Functions run in reverse order of
// registration (LIFO), so dependents stop before their dependencies.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownFuncs = append(m.shutdownFuncs, namedFunc{name: name, fn: fn})
}

// HandleSignals sets up signal handling for graceful shutdown.
// It listens for SIGINT and SIGTERM.
func (m *Manager) HandleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		m.logger.Info("Received shutdown signal", "signal", sig.String())
		m.Shutdown(30 * time.Second)
	}()
}

// Shutdown performs graceful shutdown with the given timeout.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.shutdownOnce.Do(func() {
		m.logger.Info("Starting graceful shutdown", "timeout", timeout.String())
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		m.mu.Lock()
		funcs := make([]namedFunc, len(m.shutdownFuncs))
		copy(funcs, m.shutdownFuncs)
		m.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			nf := funcs[i]
			start := time.Now()
			if err := nf.fn(ctx); err != nil {
				m.logger.Error("Failed to shutdown component",
					"component", nf.name,
					"error", err,
					"elapsed", time.Since(start).String())
			} else {
				m.logger.Info("Component shutdown complete",
					"component", nf.name,
					"elapsed", time.Since(start).String())
			}
			if ctx.Err() != nil {
				m.logger.Error("Graceful shutdown timed out", "timeout", timeout.String())
				break
			}
		}

		close(m.done)
	})
}

// Done returns a channel that's closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// WaitForShutdown blocks until shutdown is complete.
func (m *Manager) WaitForShutdown() {
	<-m.done
}
