package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScoringCallsTotal tracks scoring calls by outcome and failure reason
	ScoringCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_scoring_calls_total",
			Help: "Total number of scoring calls",
		},
		[]string{"outcome", "reason"},
	)

	// ScoringLatency tracks scoring call latency
	ScoringLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudlens_scoring_latency_seconds",
			Help:    "Scoring call latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)

	// ScoringInFlight tracks permits currently held by scoring calls
	ScoringInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudlens_scoring_in_flight",
			Help: "Number of scoring calls currently in flight",
		},
	)

	// FetchRounds tracks how many rounds a fetch needed
	FetchRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraudlens_fetch_rounds",
			Help:    "Number of retry rounds per prediction fetch",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 10},
		},
	)

	// AddressesAbandoned tracks addresses given up on, by reason
	AddressesAbandoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_addresses_abandoned_total",
			Help: "Total number of addresses abandoned after exhausting their retry budget",
		},
		[]string{"reason"},
	)

	// ScoringCacheTotal tracks prediction cache lookups by result
	ScoringCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_scoring_cache_total",
			Help: "Total number of prediction cache lookups",
		},
		[]string{"result"},
	)

	// TxSourceCallsTotal tracks explorer calls by outcome
	TxSourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudlens_txsource_calls_total",
			Help: "Total number of transaction source calls",
		},
		[]string{"outcome"},
	)

	// DBConnectionPoolUsage tracks the percentage of open connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fraudlens_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
