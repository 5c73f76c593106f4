package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_verdicts_total",
			Help:      "Search results by verdict label",
		},
		[]string{"label", "degraded"},
	)

	SearchTopScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_top_score",
			Help:      "Normalized score of the best match per search",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	RankingExcludedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ranking_excluded_total",
			Help:      "Corpus vectors excluded from ranking for dimension or source mismatch",
		},
	)

	CorpusItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "corpus_items",
			Help:      "Number of catalog items in the loaded corpus",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchVerdictsTotal)
	prometheus.MustRegister(SearchTopScore)
	prometheus.MustRegister(RankingExcludedTotal)
	prometheus.MustRegister(CorpusItems)
	searchMetricsRegistered = true
}
