// Package metrics exposes Prometheus collectors for sync runs.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	registry = prometheus.NewRegistry()

	runsTotal                 *prometheus.CounterVec
	fetchedRecords            prometheus.Gauge
	snapshotRecords           prometheus.Gauge
	lastPublishedID           prometheus.Gauge
	lastSuccessTimestamp      prometheus.Gauge
	loadAttempts              prometheus.Gauge
	fetcherDurationSeconds    *prometheus.HistogramVec
	hubRequestsTotal          *prometheus.CounterVec
	hubRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call this function multiple
// times.
func Init() {
	once.Do(func() {
		factory := promauto.With(registry)

		runsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnsync_runs_total",
				Help: "Total number of sync runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchedRecords = factory.NewGauge(prometheus.GaugeOpts{
			Name: "hnsync_fetched_records",
			Help: "Records read from the fetcher output in the last run.",
		})

		snapshotRecords = factory.NewGauge(prometheus.GaugeOpts{
			Name: "hnsync_snapshot_records",
			Help: "Records in the last published snapshot.",
		})

		lastPublishedID = factory.NewGauge(prometheus.GaugeOpts{
			Name: "hnsync_last_published_id",
			Help: "Highest identifier in the last published snapshot.",
		})

		lastSuccessTimestamp = factory.NewGauge(prometheus.GaugeOpts{
			Name: "hnsync_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed without error.",
		})

		loadAttempts = factory.NewGauge(prometheus.GaugeOpts{
			Name: "hnsync_snapshot_load_attempts",
			Help: "Attempts needed to load the stored snapshot in the last run.",
		})

		fetcherDurationSeconds = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hnsync_fetcher_duration_seconds",
				Help:    "Wall time of the external fetcher, labeled by mode.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
			},
			[]string{"mode"},
		)

		hubRequestsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnsync_hub_requests_total",
				Help: "Total number of dataset hub HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		hubRequestDurationSeconds = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hnsync_hub_request_duration_seconds",
				Help:    "Histogram of dataset hub request latencies, labeled by method and code.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "code"},
		)
	})
}

// ObserveRun increments the run counter for outcome.
func ObserveRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// SetFetched records how many records the fetcher produced.
func SetFetched(n int) {
	fetchedRecords.Set(float64(n))
}

// SetSnapshot records the size and highest identifier of a published snapshot.
func SetSnapshot(records int, maxID int64) {
	snapshotRecords.Set(float64(records))
	lastPublishedID.Set(float64(maxID))
}

// SetLoadAttempts records the attempts spent loading the stored snapshot.
func SetLoadAttempts(n int) {
	loadAttempts.Set(float64(n))
}

// ObserveFetch records one fetcher invocation.
func ObserveFetch(mode string, d time.Duration) {
	fetcherDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// MarkSuccess stamps the last successful run.
func MarkSuccess(t time.Time) {
	lastSuccessTimestamp.Set(float64(t.Unix()))
}

// InstrumentTransport wraps next so every request is counted and timed.
// A nil next uses http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	Init()
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(hubRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(hubRequestDurationSeconds, next))
}

// Push sends every collector to the Pushgateway at url, replacing the
// group for job.
func Push(ctx context.Context, url, job string) error {
	Init()
	if err := push.New(url, job).Gatherer(registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
