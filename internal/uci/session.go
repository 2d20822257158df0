package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chessreview/engine/internal/config"
	"github.com/chessreview/engine/internal/logging"
)

// ErrTerminated is returned for any request issued after the session has been
// torn down.
var ErrTerminated = errors.New("uci session terminated")

// State tracks the session lifecycle. Transitions only move forward except
// for the Ready/Busy pair, which alternates per search.
type State int

const (
	StateUninitialized State = iota
	StateHandshaking
	StateReady
	StateBusy
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Searcher is the engine-facing contract consumed by the analysis layer.
// Session implements it against a live process; MockSearcher scripts it.
type Searcher interface {
	EnsureReady(ctx context.Context) error
	NewGame(ctx context.Context) error
	Search(ctx context.Context, fen string, depth int) (*SearchResult, error)
	StopSearch()
	Close() error
}

// pendingSearch is the single-slot request/response correlation record. The
// engine is single-threaded with respect to search, so there is never more
// than one.
type pendingSearch struct {
	best      SearchResult
	cancelled bool
	result    SearchResult
	settled   chan struct{}
}

// Session owns one engine process and its line protocol: handshake, request
// correlation, cancellation, and teardown.
type Session struct {
	cfg    *config.EngineConfig
	logger logging.ContextLogger
	tr     transport

	mu             sync.Mutex
	state          State
	stdin          io.Writer
	handshake      chan struct{}
	handshakeDone  bool
	handshakeErr   error
	readyAck       chan struct{}
	pending        *pendingSearch
	closeOnce      sync.Once
}

// NewSession creates a session that will spawn the configured engine binary
// on first use.
func NewSession(cfg *config.EngineConfig, logger logging.ContextLogger) *Session {
	return newSession(cfg, logger, newProcessTransport(cfg, logger))
}

func newSession(cfg *config.EngineConfig, logger logging.ContextLogger, tr transport) *Session {
	return &Session{
		cfg:       cfg,
		logger:    logger,
		tr:        tr,
		state:     StateUninitialized,
		handshake: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnsureReady performs the uci/isready handshake once. Calls while already
// ready return immediately; concurrent calls during the handshake all
// resolve when the engine acknowledges readiness.
func (s *Session) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateTerminated:
		s.mu.Unlock()
		return ErrTerminated
	case StateUninitialized:
		stdin, stdout, err := s.tr.Start(ctx)
		if err != nil {
			s.state = StateTerminated
			s.failHandshakeLocked(fmt.Errorf("engine initialization failed: %w", err))
			s.mu.Unlock()
			return s.handshakeErr
		}
		s.stdin = stdin
		s.state = StateHandshaking
		go s.readLoop(stdout)
		s.sendLocked("uci")
	}
	done := s.handshake
	s.mu.Unlock()

	select {
	case <-done:
		s.mu.Lock()
		err := s.handshakeErr
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.readyTimeout()):
		return fmt.Errorf("engine handshake timed out after %s", s.readyTimeout())
	}
}

// NewGame resets the engine's internal game state (hash tables, history) and
// waits for the readyok barrier before returning.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return ErrTerminated
	}
	if p := s.pending; p != nil {
		// An active search must settle before the reset.
		p.cancelled = true
		s.sendLocked("stop")
		s.mu.Unlock()
		s.awaitSettled(p)
		s.mu.Lock()
	}
	ack := make(chan struct{})
	s.readyAck = ack
	s.sendLocked("ucinewgame")
	s.sendLocked("isready")
	s.mu.Unlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.readyTimeout()):
		return fmt.Errorf("ucinewgame not acknowledged after %s", s.readyTimeout())
	}
}

// Search evaluates one position to the given depth. At most one search is in
// flight; issuing a new one first cancels and drains the active search. A
// cancelled or timed-out search resolves with the neutral result rather than
// an error, because a long batch must tolerate individual engine hiccups.
func (s *Session) Search(ctx context.Context, fen string, depth int) (*SearchResult, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return nil, ErrTerminated
	}
	if prev := s.pending; prev != nil {
		prev.cancelled = true
		s.sendLocked("stop")
		s.mu.Unlock()
		s.awaitSettled(prev)
		s.mu.Lock()
		if s.state == StateTerminated {
			s.mu.Unlock()
			return nil, ErrTerminated
		}
	}
	p := &pendingSearch{settled: make(chan struct{})}
	s.pending = p
	s.state = StateBusy
	s.sendLocked("position fen " + fen)
	s.sendLocked(fmt.Sprintf("go depth %d", depth))
	s.mu.Unlock()

	var timeout <-chan time.Time
	if d := s.searchTimeout(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-p.settled:
		res := p.result
		return &res, nil
	case <-ctx.Done():
		return s.abandon(p), nil
	case <-timeout:
		s.logger.Warn("search timed out, falling back to neutral result", "fen", fen, "depth", depth)
		return s.abandon(p), nil
	}
}

// StopSearch requests cancellation of the in-flight search. Calling it while
// idle is a no-op; the session returns to Ready once the engine acknowledges
// with its terminal line.
func (s *Session) StopSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.cancelled = true
		s.sendLocked("stop")
	}
}

// Close tears the session down from any state. Outstanding requests resolve
// with the neutral cancellation result. Close is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateTerminated
		if p := s.pending; p != nil {
			s.pending = nil
			p.result = SearchResult{}
			close(p.settled)
		}
		if s.readyAck != nil {
			close(s.readyAck)
			s.readyAck = nil
		}
		s.failHandshakeLocked(ErrTerminated)
		if prev == StateReady || prev == StateBusy {
			s.sendLocked("quit")
		}
		s.mu.Unlock()
		err = s.tr.Stop()
	})
	return err
}

// abandon gives up on a search after cancellation or timeout: request a stop,
// grant the engine a short grace period to settle, then detach the pending
// slot so the session is usable again.
func (s *Session) abandon(p *pendingSearch) *SearchResult {
	s.mu.Lock()
	if s.pending == p {
		p.cancelled = true
		s.sendLocked("stop")
	}
	s.mu.Unlock()

	select {
	case <-p.settled:
	case <-time.After(2 * time.Second):
		s.mu.Lock()
		if s.pending == p {
			s.pending = nil
			if s.state == StateBusy {
				s.state = StateReady
			}
		}
		s.mu.Unlock()
	}
	return &SearchResult{}
}

// awaitSettled blocks until the pending search resolves, with a bounded wait
// so a hung engine cannot deadlock the caller.
func (s *Session) awaitSettled(p *pendingSearch) {
	select {
	case <-p.settled:
	case <-time.After(5 * time.Second):
		s.mu.Lock()
		if s.pending == p {
			s.pending = nil
			if s.state == StateBusy {
				s.state = StateReady
			}
		}
		s.mu.Unlock()
	}
}

// readLoop consumes engine output line by line and dispatches protocol
// events. It exits when the engine closes stdout.
func (s *Session) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.handleLine(line)
	}

	// Engine went away; resolve anything still waiting.
	s.mu.Lock()
	if s.state != StateTerminated {
		s.state = StateTerminated
		if p := s.pending; p != nil {
			s.pending = nil
			p.result = SearchResult{}
			close(p.settled)
		}
		if s.readyAck != nil {
			close(s.readyAck)
			s.readyAck = nil
		}
		s.failHandshakeLocked(fmt.Errorf("engine process exited"))
		s.logger.Warn("engine output stream closed")
	}
	s.mu.Unlock()
}

func (s *Session) handleLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case line == "uciok":
		if s.state != StateHandshaking {
			return
		}
		names := make([]string, 0, len(s.cfg.Options))
		for name := range s.cfg.Options {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s.sendLocked(fmt.Sprintf("setoption name %s value %s", name, s.cfg.Options[name]))
		}
		s.sendLocked("isready")

	case line == "readyok":
		if s.state == StateHandshaking {
			s.state = StateReady
			if !s.handshakeDone {
				s.handshakeDone = true
				close(s.handshake)
			}
			return
		}
		if s.readyAck != nil {
			close(s.readyAck)
			s.readyAck = nil
		}

	case strings.HasPrefix(line, "info"):
		p := s.pending
		if p == nil {
			return
		}
		// Engines emit progressively deeper lines; only the deepest counts.
		if r, ok := parseInfo(line); ok && r.Depth >= p.best.Depth {
			p.best = r
		}

	case strings.HasPrefix(line, "bestmove"):
		move, ok := parseBestMove(line)
		if !ok {
			return
		}
		p := s.pending
		if p == nil {
			// Late terminal line for an abandoned search.
			return
		}
		s.pending = nil
		if s.state == StateBusy {
			s.state = StateReady
		}
		res := p.best
		res.BestMove = move
		if p.cancelled {
			res = SearchResult{}
		}
		p.result = res
		close(p.settled)

	default:
		// id/option banners and protocol noise.
		s.logger.Debug("unhandled engine line", "line", line)
	}
}

func (s *Session) failHandshakeLocked(err error) {
	if !s.handshakeDone {
		s.handshakeErr = err
		s.handshakeDone = true
		close(s.handshake)
	}
}

func (s *Session) sendLocked(cmd string) {
	if s.stdin == nil {
		return
	}
	if _, err := fmt.Fprintf(s.stdin, "%s\n", cmd); err != nil {
		s.logger.Error("failed to write engine command", "cmd", cmd, "error", err)
	}
}

func (s *Session) readyTimeout() time.Duration {
	if s.cfg.ReadyTimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.cfg.ReadyTimeoutSecs * float64(time.Second))
}

func (s *Session) searchTimeout() time.Duration {
	if s.cfg.SearchTimeoutSecs <= 0 {
		return 0
	}
	return time.Duration(s.cfg.SearchTimeoutSecs * float64(time.Second))
}

var _ Searcher = (*Session)(nil)
