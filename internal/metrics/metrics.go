// Package metrics holds the Prometheus collectors for decode activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imread"

// Status label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	decodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_total",
			Help:      "Total number of single-image decodes",
		},
		[]string{"format", "status", "kind"}, // kind: "", io_error, source_error
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Single-image decode duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"format"},
	)

	decodedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoded_bytes_total",
			Help:      "Total RGB bytes produced by successful decodes",
		},
	)

	batchItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_items",
			Help:      "Number of paths per batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Batch decode duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	batchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failed_items_total",
			Help:      "Total number of batch items that failed to decode",
		},
	)

	poolWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_workers",
			Help:      "Number of workers in the shared decode pool",
		},
	)
)

// ObserveDecode records one decode attempt. kind is empty on success.
func ObserveDecode(format, kind string, bytes int, d time.Duration) {
	status := StatusOK
	if kind != "" {
		status = StatusFailed
	} else {
		decodedBytes.Add(float64(bytes))
	}
	decodeTotal.WithLabelValues(format, status, kind).Inc()
	decodeDuration.WithLabelValues(format).Observe(d.Seconds())
}

// ObserveBatch records a completed batch.
func ObserveBatch(items, failed int, d time.Duration) {
	batchItems.Observe(float64(items))
	batchDuration.Observe(d.Seconds())
	batchFailures.Add(float64(failed))
}

// SetPoolWorkers records the shared pool size.
func SetPoolWorkers(n int) {
	poolWorkers.Set(float64(n))
}
