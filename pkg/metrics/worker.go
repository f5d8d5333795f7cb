package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records batch outcomes for background workers such as the
// payments reconciler.
type WorkerMetrics struct {
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "giftbox_worker_batch_duration_seconds",
		Help:    "Duration of worker batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftbox_worker_events_processed_total",
		Help: "Events handled successfully by background workers.",
	}, []string{"worker"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftbox_worker_events_failed_total",
		Help: "Events that failed in background workers.",
	}, []string{"worker"})
	reg.MustRegister(duration, processed, failed)
	return &WorkerMetrics{
		duration:  duration,
		processed: processed,
		failed:    failed,
	}
}

// ObserveBatch records the duration for one polling batch.
func (w *WorkerMetrics) ObserveBatch(worker string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

func (w *WorkerMetrics) IncProcessed(worker string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(worker)).Inc()
}

func (w *WorkerMetrics) IncFailed(worker string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(worker)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
