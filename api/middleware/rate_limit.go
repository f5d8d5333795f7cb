package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// RateLimitPolicy is a sliding-window request budget. With a Store the
// counters live in Redis and are shared by every API replica; without one
// each process counts on its own.
type RateLimitPolicy struct {
	Name    string
	Limit   int
	Window  time.Duration
	KeyFunc func(r *http.Request) (string, error)
	Store   RateCounterStore
}

// RateLimit throttles requests per client IP, or per KeyFunc when set.
// A zero limit disables the middleware.
func RateLimit(policy RateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	if policy.Limit <= 0 || policy.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	keyFunc := policy.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	blocked := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"policy":         policy.Name,
				"limit":          policy.Limit,
				"window_seconds": int(policy.Window.Seconds()),
			})
			logg.Warn(ctx, "rate_limit.blocked")
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
		responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	}

	opts := []httprate.Option{httprate.WithKeyFuncs(keyFunc), httprate.WithLimitHandler(blocked)}
	if policy.Store != nil {
		opts = append(opts, httprate.WithLimitCounter(newRedisCounter(policy.Name, policy.Store, logg)))
	}
	return httprate.Limit(policy.Limit, policy.Window, opts...)
}

// ProxyRateLimit guards the public proxy endpoints with a per-minute budget per IP.
func ProxyRateLimit(requestsPerMinute int, store RateCounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return RateLimit(RateLimitPolicy{Name: "proxy", Limit: requestsPerMinute, Window: time.Minute, Store: store}, logg)
}

// LoginRateLimit budgets login attempts per email address. The email is hashed
// before it becomes a limiter key.
func LoginRateLimit(limit int, window time.Duration, store RateCounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return RateLimit(RateLimitPolicy{Name: "login", Limit: limit, Window: window, KeyFunc: emailKey, Store: store}, logg)
}

func emailKey(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(body, &payload)
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return httprate.KeyByIP(r)
	}
	sum := sha256.Sum256([]byte(email))
	return "email:" + hex.EncodeToString(sum[:]), nil
}
