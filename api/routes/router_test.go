package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/pkg/auth"
	"github.com/angelmondragon/giftbox-backend/pkg/auth/session"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
	"github.com/angelmondragon/giftbox-backend/pkg/redis/redistest"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubBookings struct{}

func (stubBookings) List(context.Context, uuid.UUID, pagination.Params) (*bookings.ListResult, error) {
	return &bookings.ListResult{}, nil
}

func (stubBookings) Get(context.Context, uuid.UUID, uuid.UUID) (*bookings.Detail, error) {
	return &bookings.Detail{}, nil
}

type stubCart struct {
	cart.Service
}

func (stubCart) View(_ context.Context, owner cart.Owner) (cart.View, error) {
	return cart.View{Mode: owner.Mode()}, nil
}

type stubCheckout struct {
	calls int
}

func (s *stubCheckout) Checkout(context.Context, uuid.UUID, string) (*checkout.Result, error) {
	s.calls++
	return &checkout.Result{Success: true}, nil
}

func (s *stubCheckout) CompleteVerified(context.Context, payloads.PaymentVerifiedEvent) (*checkout.Result, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", AllowedOrigins: []string{"https://giftbox.example"}},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "giftbox-test",
			ExpirationMinutes: 15,
		},
		RateLimit: config.RateLimitConfig{
			ProxyRequestsPerMinute: 100,
			LoginWindow:            time.Minute,
			LoginEmailLimit:        5,
		},
	}
}

type testRouter struct {
	handler  http.Handler
	checkout *stubCheckout
}

func newTestRouter(t *testing.T, cfg *config.Config) testRouter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	rdb, _ := redistest.New(t)
	co := &stubCheckout{}
	reg := prometheus.NewRegistry()
	handler := NewRouter(
		cfg,
		logg,
		stubPinger{},
		rdb,
		stubSessionManager{},
		reg,
		Services{
			Cart:     stubCart{},
			Checkout: co,
			Bookings: stubBookings{},
		},
		Proxy{Metrics: metrics.NewProxyMetrics(reg), GatewaySecret: "secret"},
	)
	return testRouter{handler: handler, checkout: co}
}

func bearer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "meera@example.com",
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", bearer(t, cfg))
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCartAllowsGuests(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Guest-Cart", "guest-xyz")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"mode":"guest"`) {
		t.Fatalf("expected guest cart, got %s", resp.Body.String())
	}
}

func TestCheckoutRequiresIdempotencyKeyAndReplays(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	token := bearer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_id":"pay_1"}`))
	req.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_id":"pay_1"}`))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := httptest.NewRecorder()
		router.handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if router.checkout.calls != 1 {
		t.Fatalf("expected replayed response, checkout ran %d times", router.checkout.calls)
	}
}

func TestAppCORSAllowsConfiguredOrigin(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "https://giftbox.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://giftbox.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestProxyRoutesUseWildcardCORS(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/ai/unknown", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/payments/verify", strings.NewReader(`{}`))
	router.handler.ServeHTTP(httptest.NewRecorder(), req)

	resp := httptest.NewRecorder()
	router.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "giftbox_proxy_requests_total") {
		t.Fatalf("proxy counter not exported")
	}
}
