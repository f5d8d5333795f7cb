package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/pkg/redis/redistest"
)

func hitFrom(h http.Handler, addr string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitBlocksAfterBudget(t *testing.T) {
	h := RateLimit(RateLimitPolicy{Name: "test", Limit: 2, Window: time.Minute}, nil)(okHandler())

	assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.1:1234"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.2:1234"), "other clients have their own budget")
}

func TestRateLimitDisabledWithoutBudget(t *testing.T) {
	h := ProxyRateLimit(0, nil, nil)(okHandler())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.1:1"))
	}
}

func TestRedisCountersAreSharedAcrossInstances(t *testing.T) {
	client, _ := redistest.New(t)
	policy := RateLimitPolicy{Name: "proxy", Limit: 2, Window: time.Minute, Store: client}

	// Two middleware instances stand in for two API replicas.
	a := RateLimit(policy, nil)(okHandler())
	b := RateLimit(policy, nil)(okHandler())

	assert.Equal(t, http.StatusOK, hitFrom(a, "10.0.0.9:1"))
	assert.Equal(t, http.StatusOK, hitFrom(b, "10.0.0.9:1"))
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(a, "10.0.0.9:1"))
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(b, "10.0.0.9:1"))
}

type brokenCounterStore struct{}

func (brokenCounterStore) IncrBy(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func (brokenCounterStore) Counters(context.Context, ...string) ([]int64, error) {
	return nil, errors.New("redis down")
}

func (brokenCounterStore) RateLimitKey(scope string) string { return scope }

func TestRateLimitFailsOpenWhenStoreIsDown(t *testing.T) {
	h := RateLimit(RateLimitPolicy{Name: "proxy", Limit: 1, Window: time.Minute, Store: brokenCounterStore{}}, nil)(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.1:1"))
	}
}

func TestLoginRateLimitKeysByEmail(t *testing.T) {
	var bodies []string
	h := LoginRateLimit(1, time.Minute, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		bodies = append(bodies, buf.String())
	}))

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("asha@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, send("ASHA@example.com"), "emails compare case-insensitively")
	assert.Equal(t, http.StatusOK, send("ravi@example.com"))

	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], "asha@example.com", "body is restored for the handler")
}

func TestProxyCORSAllowsAnyOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/proxy/ai/init", nil)
	req.Header.Set("Origin", "https://gifts.example.in")
	rec := httptest.NewRecorder()
	ProxyCORS()(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
