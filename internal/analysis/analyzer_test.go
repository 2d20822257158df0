package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessreview/engine/internal/cache"
	"github.com/chessreview/engine/internal/logging"
	"github.com/chessreview/engine/internal/uci"
)

func newTestAnalyzer(mock uci.Searcher) (*Analyzer, *cache.Store) {
	logger := logging.NewLogger("[test] ", "error")
	store := cache.Open("", 20, logger)
	return NewAnalyzer(mock, store, logger, nil), store
}

func TestAnalyzer_FullRun(t *testing.T) {
	mock := uci.NewMockSearcher()
	mock.Default = uci.SearchResult{Depth: 10, ScoreCP: 15, BestMove: "e2e4"}
	analyzer, _ := newTestAnalyzer(mock)

	result, err := analyzer.Analyze(context.Background(), Request{
		Game:   twoMoveGame(),
		Depth:  10,
		GameID: "game-1",
	})
	require.NoError(t, err)

	require.Len(t, result.Positions, 3)
	for _, pos := range result.Positions[1:] {
		assert.NotEmpty(t, pos.Classification)
	}
	assert.Contains(t, result.Summary, White)
	assert.Contains(t, result.Summary, Black)
	assert.Equal(t, 1, mock.NewGameCalls(), "each fresh analysis resets the engine")
}

func TestAnalyzer_CacheIdempotence(t *testing.T) {
	mock := uci.NewMockSearcher()
	mock.Default = uci.SearchResult{ScoreCP: 40, BestMove: "d2d4"}
	analyzer, store := newTestAnalyzer(mock)

	req := Request{Game: twoMoveGame(), Depth: 8, GameID: "game-cached"}

	first, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)
	callsAfterFirst := mock.SearchCalls()
	assert.Equal(t, 1, store.Len())

	second, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, mock.SearchCalls(), "cache hit must not touch the engine")
	assert.Equal(t, first, second)
}

func TestAnalyzer_EmptyGameIDSkipsCache(t *testing.T) {
	mock := uci.NewMockSearcher()
	mock.Default = uci.SearchResult{ScoreCP: 0, BestMove: "e2e4"}
	analyzer, store := newTestAnalyzer(mock)

	_, err := analyzer.Analyze(context.Background(), Request{Game: twoMoveGame()})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

// gatedSearcher blocks every Search until released, so tests can observe the
// analyzer mid-flight.
type gatedSearcher struct {
	*uci.MockSearcher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSearcher() *gatedSearcher {
	mock := uci.NewMockSearcher()
	mock.Default = uci.SearchResult{ScoreCP: 10, BestMove: "e2e4"}
	return &gatedSearcher{
		MockSearcher: mock,
		entered:      make(chan struct{}, 16),
		release:      make(chan struct{}),
	}
}

func (g *gatedSearcher) Search(ctx context.Context, fen string, depth int) (*uci.SearchResult, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return g.MockSearcher.Search(ctx, fen, depth)
}

func (g *gatedSearcher) StopSearch() {
	g.MockSearcher.StopSearch()
	g.once.Do(func() { close(g.release) })
}

func TestAnalyzer_CancelMidBatch(t *testing.T) {
	gated := newGatedSearcher()
	analyzer, store := newTestAnalyzer(gated)

	done := make(chan error, 1)
	go func() {
		_, err := analyzer.Analyze(context.Background(), Request{
			Game:   twoMoveGame(),
			GameID: "game-cancelled",
		})
		done <- err
	}()

	// Wait for the first evaluation to start, then cancel.
	select {
	case <-gated.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("analysis never reached the engine")
	}
	analyzer.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(3 * time.Second):
		t.Fatal("analysis did not stop")
	}
	assert.Equal(t, 0, store.Len(), "cancelled analyses are never cached")
}

func TestAnalyzer_QuickEvaluateExcludedWhileBatchRuns(t *testing.T) {
	gated := newGatedSearcher()
	analyzer, _ := newTestAnalyzer(gated)

	done := make(chan struct{})
	go func() {
		_, _ = analyzer.Analyze(context.Background(), Request{Game: twoMoveGame()})
		close(done)
	}()

	select {
	case <-gated.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("analysis never reached the engine")
	}

	_, ok, err := analyzer.QuickEvaluate(context.Background(), StartingFEN, 8)
	require.NoError(t, err)
	assert.False(t, ok, "quick evaluation must yield while a batch is running")

	analyzer.Cancel()
	<-done
}

func TestAnalyzer_QuickEvaluateWhenIdle(t *testing.T) {
	mock := uci.NewMockSearcher()
	mock.Script(StartingFEN, uci.SearchResult{ScoreCP: 30, BestMove: "e2e4"})
	analyzer, store := newTestAnalyzer(mock)

	ev, ok, err := analyzer.QuickEvaluate(context.Background(), StartingFEN, 8)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, ev.Score)
	assert.Equal(t, 0, store.Len(), "ad hoc evaluations never persist")
}

func TestAnalyzer_Shutdown(t *testing.T) {
	mock := uci.NewMockSearcher()
	analyzer, _ := newTestAnalyzer(mock)

	require.NoError(t, analyzer.Shutdown())
	require.NoError(t, analyzer.Shutdown(), "shutdown is idempotent")

	_, err := analyzer.Analyze(context.Background(), Request{Game: twoMoveGame()})
	assert.ErrorIs(t, err, ErrShutdown)

	_, _, err = analyzer.QuickEvaluate(context.Background(), StartingFEN, 8)
	assert.ErrorIs(t, err, ErrShutdown)
}
