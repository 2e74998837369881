package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"SP500Tracker/internal/model"
)

var (
	RefreshCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_refresh_cycles_total", Help: "Refresh cycles by result"},
		[]string{"result"},
	)
	InstrumentsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_instruments_failed_total", Help: "Instruments skipped after a permanent or exhausted failure"},
	)
	FetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tracker_fetch_retries_total", Help: "Backoff retries after rate-limited fetches"},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_refresh_duration_seconds",
			Help:    "Wall time of completed refresh cycles",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	LastRefresh = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tracker_last_refresh_timestamp_seconds", Help: "Unix time of the last completed refresh"},
	)
)

// Cycle results.
const (
	ResultOK        = "ok"
	ResultEmpty     = "empty"
	ResultCancelled = "cancelled"
)

func init() {
	prometheus.MustRegister(RefreshCycles, InstrumentsFailed, FetchRetries, RefreshDuration, LastRefresh)
}

// ObserveSnapshot records a completed refresh cycle.
func ObserveSnapshot(s *model.Snapshot) {
	if s == nil {
		return
	}
	result := ResultOK
	if s.Empty() {
		result = ResultEmpty
	}
	RefreshCycles.WithLabelValues(result).Inc()
	RefreshDuration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
	LastRefresh.Set(float64(s.FinishedAt.Unix()))
}

// ObserveCancelled records an abandoned refresh cycle.
func ObserveCancelled() {
	RefreshCycles.WithLabelValues(ResultCancelled).Inc()
}
