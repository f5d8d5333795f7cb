package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
	wait bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	if t.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	return t.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func newTestService(t *testing.T, lock Lock, m *metrics.CronJobMetrics, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Logger: quietLogger(), Registry: mustRegistry(t, jobs...), Lock: lock, Metrics: m})
	require.NoError(t, err)
	return svc
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	ok := &testJob{name: "payment-expiry"}
	bad := &testJob{name: "outbox-retention", err: errors.New("boom")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, nil, bad, ok)

	results, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "outbox-retention", results[0].Job)
	assert.EqualError(t, results[0].Err, "boom")
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "payment-expiry"}
	svc := newTestService(t, &fakeLock{held: true}, nil, job)

	results, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Zero(t, job.runs)
}

func TestRunOnceAppliesJobTimeout(t *testing.T) {
	slow := &testJob{name: "slow", wait: true}
	svc, err := NewService(ServiceParams{
		Logger:     quietLogger(),
		Registry:   mustRegistry(t, slow),
		Lock:       &fakeLock{},
		JobTimeout: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	results, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestRunOnceReleasesLockAfterCancel(t *testing.T) {
	lock := &fakeLock{}
	ctx, cancel := context.WithCancel(context.Background())
	job := &cancellingJob{cancel: cancel}
	svc := newTestService(t, lock, nil, job, &testJob{name: "after"})

	results, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1, "jobs after cancellation are skipped")
	assert.Equal(t, 1, lock.releases)
}

type cancellingJob struct{ cancel context.CancelFunc }

func (c *cancellingJob) Name() string { return "cancelling" }

func (c *cancellingJob) Run(context.Context) error {
	c.cancel()
	return nil
}

func TestRunOnceRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestService(t, &fakeLock{}, metrics.NewCronJobMetrics(reg),
		&testJob{name: "ok"}, &testJob{name: "bad", err: errors.New("boom")})

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "giftbox_cron_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = testutil.GatherAndCount(reg, "giftbox_cron_job_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := newTestService(t, &fakeLock{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: quietLogger()})
	assert.Error(t, err)
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	r, err := NewRegistry(jobs...)
	require.NoError(t, err)
	return r
}
