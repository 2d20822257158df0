package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusOnce     sync.Once
	prometheusInstance *Collector
)

// Collector provides Prometheus metrics for the analysis server.
type Collector struct {
	// Tool metrics
	toolCallsTotal   *prometheus.CounterVec
	toolDurationSecs *prometheus.HistogramVec

	// UCI engine metrics
	engineStatus        prometheus.Gauge
	engineRestartsTotal prometheus.Counter
	evalDurationSecs    prometheus.Histogram

	// Analysis metrics
	gamesAnalyzedTotal   *prometheus.CounterVec
	pliesEvaluatedTotal  prometheus.Counter
	analysisDurationSecs prometheus.Histogram

	// Cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	cacheEntries     prometheus.Gauge
}

// NewCollector creates the Prometheus metrics collector (singleton; promauto
// registration must only happen once per process).
func NewCollector() *Collector {
	prometheusOnce.Do(func() {
		prometheusInstance = &Collector{
			toolCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chessreview_tool_calls_total",
					Help: "Total number of MCP tool calls",
				},
				[]string{"tool", "status"},
			),
			toolDurationSecs: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "chessreview_tool_duration_seconds",
					Help:    "Duration of MCP tool calls in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			engineStatus: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "chessreview_engine_status",
					Help: "Status of the UCI engine (1=ready, 0=down)",
				},
			),
			engineRestartsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "chessreview_engine_restarts_total",
					Help: "Total number of UCI engine restarts",
				},
			),
			evalDurationSecs: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "chessreview_eval_duration_seconds",
					Help:    "Duration of single-position evaluations in seconds",
					Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
			),
			gamesAnalyzedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chessreview_games_analyzed_total",
					Help: "Total number of game analyses by outcome",
				},
				[]string{"status"},
			),
			pliesEvaluatedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "chessreview_plies_evaluated_total",
					Help: "Total number of positions sent to the engine",
				},
			),
			analysisDurationSecs: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "chessreview_analysis_duration_seconds",
					Help:    "Duration of full-game analyses in seconds",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
				},
			),
			cacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "chessreview_cache_hits_total",
					Help: "Total number of result cache hits",
				},
			),
			cacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "chessreview_cache_misses_total",
					Help: "Total number of result cache misses",
				},
			),
			cacheEntries: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "chessreview_cache_entries",
					Help: "Current number of entries in the result cache",
				},
			),
		}
	})
	return prometheusInstance
}

// RecordToolCall records a tool call metric.
func (c *Collector) RecordToolCall(tool, status string, durationSecs float64) {
	if c == nil {
		return
	}
	c.toolCallsTotal.WithLabelValues(tool, status).Inc()
	c.toolDurationSecs.WithLabelValues(tool).Observe(durationSecs)
}

// RecordEngineStatus records the current engine status.
func (c *Collector) RecordEngineStatus(ready bool) {
	if c == nil {
		return
	}
	value := 0.0
	if ready {
		value = 1.0
	}
	c.engineStatus.Set(value)
}

// RecordEngineRestart records an engine restart.
func (c *Collector) RecordEngineRestart() {
	if c == nil {
		return
	}
	c.engineRestartsTotal.Inc()
}

// RecordEvaluation records a single-position evaluation.
func (c *Collector) RecordEvaluation(durationSecs float64) {
	if c == nil {
		return
	}
	c.pliesEvaluatedTotal.Inc()
	c.evalDurationSecs.Observe(durationSecs)
}

// RecordGameAnalyzed records a completed (or failed) game analysis.
func (c *Collector) RecordGameAnalyzed(status string, durationSecs float64) {
	if c == nil {
		return
	}
	c.gamesAnalyzedTotal.WithLabelValues(status).Inc()
	c.analysisDurationSecs.Observe(durationSecs)
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.cacheMissesTotal.Inc()
}

// SetCacheEntries sets the current cache entry count.
func (c *Collector) SetCacheEntries(count float64) {
	if c == nil {
		return
	}
	c.cacheEntries.Set(count)
}
