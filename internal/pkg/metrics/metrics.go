// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpstreamRequests counts exchange API calls by route and outcome.
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_tracker",
		Name:      "upstream_requests_total",
		Help:      "Exchange API requests by route and result class.",
	}, []string{"route", "result"})

	// UpstreamLatency observes exchange API call duration by route.
	UpstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portfolio_tracker",
		Name:      "upstream_request_duration_seconds",
		Help:      "Exchange API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// SnapshotLookups counts portfolio reads served from cache versus refreshed.
	SnapshotLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_tracker",
		Name:      "snapshot_lookups_total",
		Help:      "Portfolio reads by source (cache, refresh).",
	}, []string{"source"})

	// RefreshDuration observes full refresh time, including enrichment.
	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portfolio_tracker",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of full portfolio refreshes.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// EnrichmentFailures counts degraded items by kind (price, invested).
	EnrichmentFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_tracker",
		Name:      "enrichment_failures_total",
		Help:      "Per-item enrichment steps that degraded instead of failing the refresh.",
	}, []string{"kind"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call twice.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(UpstreamRequests, UpstreamLatency, SnapshotLookups, RefreshDuration, EnrichmentFailures)
	})
}
