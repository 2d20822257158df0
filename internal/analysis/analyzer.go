package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chessreview/engine/internal/cache"
	"github.com/chessreview/engine/internal/logging"
	"github.com/chessreview/engine/internal/metrics"
	"github.com/chessreview/engine/internal/uci"
)

var (
	// ErrStopped signals a cooperative cancellation. Callers must treat it
	// as a distinguished outcome, not a failure, and never invalidate cache
	// state because of it.
	ErrStopped = errors.New("analysis stopped")

	// ErrShutdown is returned for any request issued after Shutdown.
	ErrShutdown = errors.New("analyzer shut down")
)

// Request describes one game analysis job.
type Request struct {
	Game  Game
	Depth int

	// GameID keys the result cache. Empty means do not cache, used for
	// ad hoc analyses that should never persist.
	GameID string

	// OnProgress, if set, is called after each evaluated ply with the
	// number of completed positions and the total.
	OnProgress func(done, total int)
}

// Analyzer is the public entry point: it owns the engine session and the
// result cache, serializes batch analyses, and exposes cancellation.
type Analyzer struct {
	searcher uci.Searcher
	store    *cache.Store
	logger   logging.ContextLogger
	metrics  *metrics.Collector

	mu            sync.Mutex
	stopRequested atomic.Bool
	closed        atomic.Bool
}

// NewAnalyzer wires an analyzer over a searcher and an optional cache
// store. A nil store disables caching entirely.
func NewAnalyzer(searcher uci.Searcher, store *cache.Store, logger logging.ContextLogger, collector *metrics.Collector) *Analyzer {
	return &Analyzer{
		searcher: searcher,
		store:    store,
		logger:   logger,
		metrics:  collector,
	}
}

// Analyze produces a complete classified result for one game. Concurrent
// calls are serialized; the single engine process allows only one active
// search. A cache hit short-circuits the engine entirely. On cancellation
// no partial result is returned, only ErrStopped.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if a.closed.Load() {
		return nil, ErrShutdown
	}

	if cached, ok := a.loadCached(req.GameID); ok {
		a.logger.Info("analysis served from cache", "gameId", req.GameID)
		return cached, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return nil, ErrShutdown
	}
	a.stopRequested.Store(false)

	depth := req.Depth
	if depth <= 0 {
		depth = 12
	}

	started := time.Now()
	result, err := a.analyzeLocked(ctx, req, depth)
	switch {
	case errors.Is(err, ErrStopped):
		a.metrics.RecordGameAnalyzed("stopped", time.Since(started).Seconds())
		a.logger.Info("analysis cancelled", "gameId", req.GameID)
		return nil, ErrStopped
	case err != nil:
		a.metrics.RecordGameAnalyzed("error", time.Since(started).Seconds())
		return nil, err
	}
	a.metrics.RecordGameAnalyzed("ok", time.Since(started).Seconds())

	if req.GameID != "" && a.store != nil {
		a.store.Save(req.GameID, result)
		a.metrics.SetCacheEntries(float64(a.store.Len()))
	}
	a.logger.Info("analysis complete",
		"gameId", req.GameID,
		"plies", len(result.Positions),
		"depth", depth,
		"durationMs", time.Since(started).Milliseconds())
	return result, nil
}

func (a *Analyzer) analyzeLocked(ctx context.Context, req Request, depth int) (*Result, error) {
	if err := a.searcher.EnsureReady(ctx); err != nil {
		return nil, err
	}
	// Reset clears transposition and history state left by prior runs.
	if err := a.searcher.NewGame(ctx); err != nil {
		return nil, err
	}

	p := &pipeline{
		eval:      NewEvaluator(a.searcher),
		logger:    a.logger,
		metrics:   a.metrics,
		cancelled: a.stopRequested.Load,
		progress:  req.OnProgress,
	}
	positions, err := p.run(ctx, req.Game, depth)
	if err != nil {
		return nil, err
	}

	Classify(positions)
	moments, summary := Summarize(positions)

	return &Result{
		Positions:       positions,
		CriticalMoments: moments,
		Summary:         summary,
		Depth:           depth,
	}, nil
}

// Cancel requests cooperative cancellation of an in-flight analysis and
// interrupts the active engine search. Calling it while idle is a no-op.
func (a *Analyzer) Cancel() {
	a.stopRequested.Store(true)
	a.searcher.StopSearch()
}

// QuickEvaluate performs one ad hoc position evaluation. It never touches
// the cache. When a batch analysis is running the call yields immediately
// with ok=false instead of queueing behind a long job.
func (a *Analyzer) QuickEvaluate(ctx context.Context, fen string, depth int) (Evaluation, bool, error) {
	if a.closed.Load() {
		return Evaluation{}, false, ErrShutdown
	}
	if !a.mu.TryLock() {
		return Evaluation{}, false, nil
	}
	defer a.mu.Unlock()

	if depth <= 0 {
		depth = 12
	}
	if err := a.searcher.EnsureReady(ctx); err != nil {
		return Evaluation{}, false, err
	}
	ev, err := NewEvaluator(a.searcher).Evaluate(ctx, fen, depth)
	if err != nil {
		return Evaluation{}, false, err
	}
	return ev, true, nil
}

// Shutdown tears down the engine session and flushes the cache. It is
// irreversible; subsequent calls on the analyzer return ErrShutdown.
func (a *Analyzer) Shutdown() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.stopRequested.Store(true)
	a.searcher.StopSearch()

	err := a.searcher.Close()
	if a.store != nil {
		if cerr := a.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// loadCached returns a cache hit, if any, and records hit/miss metrics.
func (a *Analyzer) loadCached(gameID string) (*Result, bool) {
	if gameID == "" || a.store == nil {
		return nil, false
	}
	var result Result
	if a.store.Load(gameID, &result) {
		a.metrics.RecordCacheHit()
		return &result, true
	}
	a.metrics.RecordCacheMiss()
	return nil, false
}
