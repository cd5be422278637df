// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DiscoveryDuration measures a full keyword discovery call.
	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_duration_seconds",
		Help:    "Duration of keyword post discovery",
		Buckets: prometheus.DefBuckets,
	})

	// KeywordSearchesTotal counts per-keyword searches by outcome (ok, error, cache_hit).
	KeywordSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_keyword_searches_total",
		Help: "Keyword searches issued against the search provider",
	}, []string{"outcome"})

	// DiscoveredPosts observes how many posts a discovery call returned.
	DiscoveredPosts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_posts_returned",
		Help:    "Number of posts returned per discovery call",
		Buckets: []float64{0, 1, 2, 5, 10},
	})

	// CommentsPostedTotal counts comment submissions by outcome (posted, replayed, error).
	CommentsPostedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reddit_comments_total",
		Help: "Brand comments submitted to Reddit",
	}, []string{"outcome"})

	// SavedPostConflictsTotal counts duplicate save attempts.
	SavedPostConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saved_post_conflicts_total",
		Help: "Save attempts rejected because the post was already saved",
	})

	// BreakerTransitionsTotal counts circuit breaker state changes.
	BreakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"name", "to"})
)

// ObserveDiscovery records a finished discovery call.
func ObserveDiscovery(d time.Duration, returned int) {
	DiscoveryDuration.Observe(d.Seconds())
	DiscoveredPosts.Observe(float64(returned))
}

// RecordSearch records one keyword search outcome.
func RecordSearch(outcome string) {
	KeywordSearchesTotal.WithLabelValues(outcome).Inc()
}

// RecordComment records one comment submission outcome.
func RecordComment(outcome string) {
	CommentsPostedTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns the side-port metrics server.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
