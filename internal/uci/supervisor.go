package uci

import (
	"context"
	"sync"
	"time"

	"github.com/chessreview/engine/internal/config"
	"github.com/chessreview/engine/internal/logging"
	"github.com/chessreview/engine/internal/metrics"
	"github.com/chessreview/engine/internal/retry"
)

// Supervisor wraps a Session and respawns the engine process if it dies.
// Session termination is irreversible, so the supervisor owns the restart
// policy that the session itself deliberately lacks.
type Supervisor struct {
	cfg     *config.EngineConfig
	logger  logging.ContextLogger
	metrics *metrics.Collector
	retry   *retry.Manager

	mu      sync.Mutex
	current *Session
	closed  bool
}

// NewSupervisor creates a supervisor with bounded start retries.
func NewSupervisor(cfg *config.EngineConfig, logger logging.ContextLogger, collector *metrics.Collector) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		retry: retry.NewManager(retry.Config{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			Jitter:       0.1,
		}),
	}
}

// session returns the live session, spawning a replacement if the previous
// one terminated.
func (s *Supervisor) session() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrTerminated
	}
	if s.current == nil || s.current.State() == StateTerminated {
		if s.current != nil {
			s.logger.Warn("engine session terminated, respawning")
			s.metrics.RecordEngineRestart()
		}
		s.current = NewSession(s.cfg, s.logger)
	}
	return s.current, nil
}

// EnsureReady implements Searcher, retrying engine startup with backoff.
func (s *Supervisor) EnsureReady(ctx context.Context) error {
	err := s.retry.Run(ctx, func(ctx context.Context) error {
		sess, err := s.session()
		if err != nil {
			return err
		}
		if err := sess.EnsureReady(ctx); err != nil {
			s.logger.Error("engine start attempt failed", "error", err)
			_ = sess.Close()
			return err
		}
		return nil
	})
	s.metrics.RecordEngineStatus(err == nil)
	return err
}

// NewGame implements Searcher.
func (s *Supervisor) NewGame(ctx context.Context) error {
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	sess, err := s.session()
	if err != nil {
		return err
	}
	return sess.NewGame(ctx)
}

// Search implements Searcher.
func (s *Supervisor) Search(ctx context.Context, fen string, depth int) (*SearchResult, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	return sess.Search(ctx, fen, depth)
}

// StopSearch implements Searcher.
func (s *Supervisor) StopSearch() {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()
	if sess != nil {
		sess.StopSearch()
	}
}

// State reports the current session state, for status surfaces.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return StateUninitialized
	}
	return s.current.State()
}

// Close implements Searcher. The supervisor stops respawning after Close.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	s.closed = true
	sess := s.current
	s.mu.Unlock()
	s.metrics.RecordEngineStatus(false)
	if sess != nil {
		return sess.Close()
	}
	return nil
}

var _ Searcher = (*Supervisor)(nil)
