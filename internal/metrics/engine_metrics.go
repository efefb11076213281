// Package metrics defines engine-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine counter vectors
var (
	RacesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "races_processed_total",
		Help:      "Total number of race payloads processed by outcome",
	}, []string{"outcome"})

	AdviceIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advice_issued_total",
		Help:      "Total number of betting recommendations by confidence band",
	}, []string{"confidence"})

	EngineErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_errors_total",
		Help:      "Total number of engine failures by operation and kind",
	}, []string{"operation", "kind"})
)

// Engine histograms
var (
	SelectionScoreGap = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "selection_score_gap",
		Help:      "Composite score lead of the selection over the runner-up",
		Buckets:   []float64{0.01, 0.02, 0.04, 0.06, 0.08, 0.1, 0.15, 0.2, 0.3, 0.5},
	})
)

// Advice cache gauges
var (
	AdviceCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "advice_cache_hit_ratio",
		Help:      "Advice cache hit ratio",
	})

	AdviceCacheItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "advice_cache_items",
		Help:      "Number of entries held by the advice cache",
	})
)

// RecordRaceProcessed records the outcome of a process-race-data call.
func RecordRaceProcessed(outcome string) {
	RacesProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordAdvice records an issued recommendation.
func RecordAdvice(confidence string, scoreGap float64) {
	AdviceIssuedTotal.WithLabelValues(confidence).Inc()
	SelectionScoreGap.Observe(scoreGap)
}

// RecordEngineError records a typed engine failure.
func RecordEngineError(operation, kind string) {
	EngineErrorsTotal.WithLabelValues(operation, kind).Inc()
}

// UpdateAdviceCache updates the advice cache gauges.
func UpdateAdviceCache(hitRatio float64, items int) {
	AdviceCacheHitRatio.Set(hitRatio)
	AdviceCacheItems.Set(float64(items))
}
