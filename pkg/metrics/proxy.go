package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics counts requests served by the pass-through proxy routes.
type ProxyMetrics struct {
	requests *prometheus.CounterVec
}

func NewProxyMetrics(reg prometheus.Registerer) *ProxyMetrics {
	if reg == nil {
		return &ProxyMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftbox_proxy_requests_total",
		Help: "Requests answered by the proxy routes, by target and status.",
	}, []string{"target", "endpoint", "status"})
	reg.MustRegister(requests)
	return &ProxyMetrics{requests: requests}
}

// ObserveRequest records the status the proxy answered with.
func (m *ProxyMetrics) ObserveRequest(target, endpoint string, status int) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(target), normalizeLabel(endpoint), strconv.Itoa(status)).Inc()
}
