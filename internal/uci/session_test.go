package uci

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessreview/engine/internal/config"
	"github.com/chessreview/engine/internal/logging"
)

// scriptedEngine emulates a UCI engine behind the transport interface.
// Commands are processed on a dedicated goroutine so responses never write
// back into the session from the caller's own stack.
type scriptedEngine struct {
	mu      sync.Mutex
	results map[string][]string

	cmds chan string
	pr   *io.PipeReader
	pw   *io.PipeWriter

	stopOnce sync.Once
}

func newScriptedEngine() *scriptedEngine {
	pr, pw := io.Pipe()
	e := &scriptedEngine{
		results: make(map[string][]string),
		cmds:    make(chan string, 64),
		pr:      pr,
		pw:      pw,
	}
	go e.loop()
	return e
}

// script sets the lines emitted in response to a search of the given FEN.
// A FEN with no script leaves the search hanging until "stop" arrives.
func (e *scriptedEngine) script(fen string, lines ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[fen] = lines
}

func (e *scriptedEngine) Start(ctx context.Context) (io.Writer, io.Reader, error) {
	return e, e.pr, nil
}

func (e *scriptedEngine) Stop() error {
	e.stopOnce.Do(func() {
		close(e.cmds)
		_ = e.pw.Close()
	})
	return nil
}

func (e *scriptedEngine) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		e.cmds <- line
	}
	return len(p), nil
}

func (e *scriptedEngine) loop() {
	var fen string
	searching := false
	for cmd := range e.cmds {
		switch {
		case cmd == "uci":
			e.emit("id name scripted", "id author test", "uciok")
		case cmd == "isready":
			e.emit("readyok")
		case strings.HasPrefix(cmd, "position fen "):
			fen = strings.TrimPrefix(cmd, "position fen ")
		case strings.HasPrefix(cmd, "go "):
			e.mu.Lock()
			lines, ok := e.results[fen]
			e.mu.Unlock()
			if ok {
				e.emit(lines...)
			} else {
				searching = true
			}
		case cmd == "stop":
			if searching {
				searching = false
				e.emit("bestmove e2e4")
			}
		}
	}
}

func (e *scriptedEngine) emit(lines ...string) {
	for _, line := range lines {
		if _, err := fmt.Fprintf(e.pw, "%s\n", line); err != nil {
			return
		}
	}
}

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		BinaryPath:        "scripted",
		Options:           map[string]string{"Threads": "1"},
		Depth:             10,
		SearchTimeoutSecs: 5,
		ReadyTimeoutSecs:  2,
	}
}

func newTestSession(t *testing.T) (*Session, *scriptedEngine) {
	t.Helper()
	engine := newScriptedEngine()
	s := newSession(testEngineConfig(), logging.NewLogger("[test] ", "error"), engine)
	t.Cleanup(func() { _ = s.Close() })
	return s, engine
}

func TestSession_Handshake(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, StateUninitialized, s.State())

	require.NoError(t, s.EnsureReady(context.Background()))
	assert.Equal(t, StateReady, s.State())

	// Already ready; must be a no-op.
	require.NoError(t, s.EnsureReady(context.Background()))
}

func TestSession_SearchKeepsDeepestInfo(t *testing.T) {
	s, engine := newTestSession(t)
	const fen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	engine.script(fen,
		"info depth 5 score cp 10 pv d2d4",
		"info depth 12 score cp 42 pv e2e4 e7e5",
		"bestmove e2e4 ponder e7e5",
	)

	res, err := s.Search(context.Background(), fen, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Depth)
	assert.Equal(t, 42, res.ScoreCP)
	assert.Equal(t, "e2e4", res.BestMove)
	assert.Equal(t, []string{"e2e4", "e7e5"}, res.PV)
	assert.Equal(t, StateReady, s.State())
}

func TestSession_TerminalPositionBestMoveNone(t *testing.T) {
	s, engine := newTestSession(t)
	const fen = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	engine.script(fen, "bestmove (none)")

	res, err := s.Search(context.Background(), fen, 10)
	require.NoError(t, err)
	assert.Equal(t, "", res.BestMove)
	assert.Equal(t, 0, res.ScoreCP)
}

func TestSession_MateScore(t *testing.T) {
	s, engine := newTestSession(t)
	const fen = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	engine.script(fen,
		"info depth 20 score mate 4 pv a1a8",
		"bestmove a1a8",
	)

	res, err := s.Search(context.Background(), fen, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Mate)
	assert.Equal(t, 0, res.ScoreCP)
}

func TestSession_StopSearchResolvesNeutral(t *testing.T) {
	s, _ := newTestSession(t)
	// No script for this FEN, so the search hangs until stopped.
	const fen = "8/8/8/8/8/8/8/K6k w - - 0 1"

	type outcome struct {
		res *SearchResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Search(context.Background(), fen, 10)
		done <- outcome{res, err}
	}()

	// Let the search start before cancelling.
	time.Sleep(100 * time.Millisecond)
	s.StopSearch()

	select {
	case o := <-done:
		require.NoError(t, o.err)
		assert.Equal(t, &SearchResult{}, o.res, "cancelled search must resolve neutral")
	case <-time.After(3 * time.Second):
		t.Fatal("search did not resolve after stop")
	}
	assert.Equal(t, StateReady, s.State(), "cancellation must leave the session usable")
}

func TestSession_StopSearchWhileIdleIsNoOp(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.EnsureReady(context.Background()))
	s.StopSearch()
	s.StopSearch()
	assert.Equal(t, StateReady, s.State())
}

func TestSession_NewGameBarrier(t *testing.T) {
	s, engine := newTestSession(t)
	require.NoError(t, s.NewGame(context.Background()))
	assert.Equal(t, StateReady, s.State())

	const fen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	engine.script(fen, "info depth 8 score cp 20", "bestmove e2e4")
	_, err := s.Search(context.Background(), fen, 8)
	require.NoError(t, err)

	// Reset again after a completed search.
	require.NoError(t, s.NewGame(context.Background()))
}

func TestSession_CloseResolvesPendingSearch(t *testing.T) {
	s, _ := newTestSession(t)
	const fen = "8/8/8/8/8/8/8/K6k w - - 0 1"

	done := make(chan *SearchResult, 1)
	go func() {
		res, err := s.Search(context.Background(), fen, 10)
		if err == nil {
			done <- res
		} else {
			done <- nil
		}
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.Equal(t, &SearchResult{}, res)
	case <-time.After(3 * time.Second):
		t.Fatal("search did not resolve after close")
	}
	assert.Equal(t, StateTerminated, s.State())
}

func TestSession_RequestsAfterCloseFail(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.EnsureReady(context.Background()))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.EnsureReady(context.Background()), ErrTerminated)
	_, err := s.Search(context.Background(), "any", 10)
	assert.ErrorIs(t, err, ErrTerminated)

	// Close is idempotent.
	require.NoError(t, s.Close())
}

func TestSession_ContextCancelDuringSearch(t *testing.T) {
	s, _ := newTestSession(t)
	const fen = "8/8/8/8/8/8/8/K6k w - - 0 1"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := s.Search(ctx, fen, 10)
	require.NoError(t, err)
	assert.Equal(t, &SearchResult{}, res)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "handshaking", StateHandshaking.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "busy", StateBusy.String())
	assert.Equal(t, "terminated", StateTerminated.String())
}
