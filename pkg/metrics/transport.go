package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransportMetrics tracks individual attempts against the recommendation service.
type TransportMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewTransportMetrics(reg prometheus.Registerer) *TransportMetrics {
	if reg == nil {
		return &TransportMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftbox_personalizer_attempts_total",
		Help: "HTTP attempts made to the recommendation service.",
	}, []string{"endpoint", "status", "retry"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "giftbox_personalizer_attempt_seconds",
		Help:    "Latency of single attempts to the recommendation service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	reg.MustRegister(attempts, latency)
	return &TransportMetrics{attempts: attempts, latency: latency}
}

// ObserveAttempt records one attempt. status is 0 for network failures.
func (m *TransportMetrics) ObserveAttempt(endpoint string, status int, duration time.Duration, retry bool) {
	if m == nil || m.attempts == nil {
		return
	}
	statusLabel := "network_error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	m.attempts.WithLabelValues(normalizeLabel(endpoint), statusLabel, strconv.FormatBool(retry)).Inc()
	m.latency.WithLabelValues(normalizeLabel(endpoint)).Observe(duration.Seconds())
}
