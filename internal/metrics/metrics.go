// Package metrics registers the Prometheus collectors for turns, retrieval and HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts conversation turns by path (technical, smalltalk, invalid) and outcome.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wraith_turns_total",
		Help: "Conversation turns by path and outcome",
	}, []string{"path", "outcome"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wraith_turn_duration_seconds",
		Help:    "End-to-end turn duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	})

	RetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wraith_retrieval_duration_seconds",
		Help:    "Hybrid search, rerank and assembly duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	// RetrievalCandidates is the number of distinct threads returned by hybrid search.
	RetrievalCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wraith_retrieval_candidates",
		Help:    "Distinct threads returned by hybrid search",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 70},
	})

	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wraith_errors_total",
		Help: "Errors by kind",
	}, []string{"kind"})

	SummariesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wraith_summaries_total",
		Help: "Conversation summaries generated",
	})

	// IngestFilesTotal counts watched or CLI file ingests by outcome (ingested, removed, failed).
	IngestFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wraith_ingest_files_total",
		Help: "File ingests by outcome",
	}, []string{"outcome"})

	EmbeddingCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wraith_embedding_cache_lookups_total",
		Help: "Embedding cache lookups by result (hit or miss)",
	}, []string{"result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wraith_http_requests_total",
		Help: "HTTP requests by route pattern and status",
	}, []string{"route", "status"})
)

// ObserveTurn records one finished turn.
func ObserveTurn(path, outcome string, start time.Time) {
	TurnsTotal.WithLabelValues(path, outcome).Inc()
	TurnDuration.Observe(time.Since(start).Seconds())
}

// ObserveRetrieval records one retrieval run and its candidate count.
func ObserveRetrieval(candidates int, start time.Time) {
	RetrievalCandidates.Observe(float64(candidates))
	RetrievalDuration.Observe(time.Since(start).Seconds())
}

// ObserveError counts an error of kind.
func ObserveError(kind string) {
	ErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveIngest counts one file ingest.
func ObserveIngest(outcome string) {
	IngestFilesTotal.WithLabelValues(outcome).Inc()
}

// ObserveEmbeddingCache counts one embedding cache lookup.
func ObserveEmbeddingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	EmbeddingCacheTotal.WithLabelValues(result).Inc()
}

// ObserveHTTP counts a served request.
func ObserveHTTP(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
