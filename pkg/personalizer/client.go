// Package personalizer is the HTTP transport to the hosted gift recommendation
// service (init, submit, next, back, suggestion, followup, reset).
package personalizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
)

const (
	defaultMaxAttempts       = 3
	defaultBackoffStep       = time.Second
	defaultTimeout           = 30 * time.Second
	maxResponseBytes   int64 = 4 << 20
)

var (
	// ErrTransportExhausted is returned when every attempt failed at the network level.
	ErrTransportExhausted = errors.New("personalizer transport retries exhausted")

	errBaseURLRequired = errors.New("personalizer base url is required")
)

// Client calls the hosted conversational recommendation service. Attempts
// answered with 502 or 504, and attempts that fail at the network level, are
// retried with a linear backoff of step × attempt.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	backoffStep time.Duration
	metrics     *metrics.TransportMetrics
	sleep       func(context.Context, time.Duration) error
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxAttempts sets the total number of attempts per call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffStep sets the linear backoff unit.
func WithBackoffStep(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoffStep = d
		}
	}
}

// WithMetrics records per-attempt metrics.
func WithMetrics(m *metrics.TransportMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New builds a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid personalizer base url: %w", err)
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     trimmed,
		maxAttempts: defaultMaxAttempts,
		backoffStep: defaultBackoffStep,
		sleep:       sleepWithContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig wires the client from environment configuration.
func NewFromConfig(cfg config.PersonalizerConfig, m *metrics.TransportMetrics) (*Client, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return New(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithMaxAttempts(cfg.MaxAttempts),
		WithBackoffStep(cfg.BackoffStep),
		WithMetrics(m),
	)
}

// Request describes one logical call.
type Request struct {
	Endpoint Endpoint
	// Method defaults to the endpoint's canonical method.
	Method string
	// Body is JSON-encoded unless it is already a []byte or json.RawMessage.
	Body   any
	Query  url.Values
	Header http.Header
}

// Response is the final response of a call, after retries.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Call performs the request with the retry policy. A 502/504 on the final
// attempt is returned as a normal response, not an error; only network-level
// failures surface as ErrTransportExhausted.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, errors.New("personalizer client not configured")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = req.Endpoint.Method()
	}
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", req.Endpoint, err)
	}
	target := c.buildURL(req.Endpoint, req.Query)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", req.Endpoint, err)
		}
		applyHeaders(httpReq, req.Header)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		var body []byte
		if err == nil {
			body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
		}
		elapsed := time.Since(start)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			retry := attempt < c.maxAttempts
			c.metrics.ObserveAttempt(string(req.Endpoint), 0, elapsed, retry)
			if !retry {
				break
			}
			if err := c.sleep(ctx, c.backoffFor(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		retry := shouldRetry(resp.StatusCode) && attempt < c.maxAttempts
		c.metrics.ObserveAttempt(string(req.Endpoint), resp.StatusCode, elapsed, retry)
		if retry {
			if err := c.sleep(ctx, c.backoffFor(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			Attempts:   attempt,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrTransportExhausted, req.Endpoint, c.maxAttempts, lastErr)
}

func (c *Client) buildURL(endpoint Endpoint, query url.Values) string {
	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(string(endpoint), "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) backoffFor(attempt int) time.Duration {
	return c.backoffStep * time.Duration(attempt)
}

func shouldRetry(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusGatewayTimeout
}

func applyHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range extra {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
