// Package metrics holds the Prometheus collectors shared by the HTTP server
// and the sweep worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by route and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurotools_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})

	// HTTPDuration tracks request latency
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neurotools_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"route"})

	// TrainsGenerated counts generated spike trains by process kind
	TrainsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurotools_trains_generated_total",
		Help: "Total spike trains generated by process kind",
	}, []string{"kind"})

	// SpikesGenerated counts generated spikes by process kind
	SpikesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neurotools_spikes_generated_total",
		Help: "Total spikes generated by process kind",
	}, []string{"kind"})

	// AnalysisDuration tracks the time spent per analysis
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neurotools_analysis_duration_seconds",
		Help:    "Analysis duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"analysis"})

	// SweepsStarted counts sweep workflows started through the API
	SweepsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neurotools_sweeps_started_total",
		Help: "Total sweep workflows started",
	})
)
