package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	FetchAttemptsTotal *prometheus.CounterVec
	ChannelsTotal      *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	CyclesTotal        *prometheus.CounterVec
	PlaylistEntries    prometheus.Gauge
	LastSuccessfulRun  prometheus.Gauge
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		FetchAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livecast_fetch_attempts_total",
				Help: "Total number of channel fetch attempts.",
			},
			[]string{"result"}, // success, network, extraction_miss, timeout
		),
		ChannelsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livecast_channel_outcomes_total",
				Help: "Terminal channel outcomes per cycle.",
			},
			[]string{"status", "reason"}, // status: success, failure
		),
		CycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "livecast_cycle_duration_seconds",
				Help:    "Duration of crawl cycles.",
				Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
			},
		),
		CyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livecast_cycles_total",
				Help: "Total number of crawl cycles.",
			},
			[]string{"result"}, // published, skipped, locked
		),
		PlaylistEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "livecast_playlist_entries",
				Help: "Number of entries in the published playlist.",
			},
		),
		LastSuccessfulRun: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "livecast_last_published_timestamp_seconds",
				Help: "Unix time of the last published playlist.",
			},
		),
	}
}
