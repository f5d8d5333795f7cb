package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.Observe("payment-expiry", 40*time.Millisecond, nil)
	m.Observe("payment-expiry", 10*time.Millisecond, nil)
	m.Observe("", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("payment-expiry", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", outcomeFailure)))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("payment-expiry")), 0.0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, err := fetchHistogramSum(mfs, "giftbox_cron_job_duration_seconds", "job", "payment-expiry")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, sum, 0.0001)
}

func TestNilCronMetricsAreNoops(t *testing.T) {
	var m *CronJobMetrics
	m.Observe("x", time.Second, nil)
	assert.Nil(t, NewCronJobMetrics(nil))
}
