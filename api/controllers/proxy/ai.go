package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/personalizer"
)

// Caller performs one retried call against the recommendation service.
type Caller interface {
	Call(ctx context.Context, req personalizer.Request) (*personalizer.Response, error)
}

// AI forwards /api/proxy/ai/{endpoint} to the recommendation service. Upstream
// statuses are passed through; 2xx bodies are returned verbatim.
func AI(client Caller, m *metrics.ProxyMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		raw := chi.URLParam(r, "endpoint")
		defer func() { m.ObserveRequest("ai", raw, sw.status) }()

		if r.Method == http.MethodOptions {
			sw.WriteHeader(http.StatusNoContent)
			return
		}

		endpoint, ok := personalizer.ParseEndpoint(raw)
		if !ok {
			responses.WriteProxyError(r.Context(), logg, sw, pkgerrors.New(pkgerrors.CodeValidation, "unknown endpoint").
				WithDetails(map[string]any{"endpoint": raw}))
			return
		}
		raw = string(endpoint)
		if r.Method != endpoint.Method() {
			methodNotAllowed(sw, endpoint.Method())
			return
		}

		var body []byte
		if r.Method != http.MethodGet {
			var err error
			if body, err = readJSONBody(r); err != nil {
				responses.WriteProxyError(r.Context(), logg, sw, err)
				return
			}
		}

		ctx := logg.WithField(r.Context(), "endpoint", raw)
		resp, err := client.Call(ctx, personalizer.Request{
			Endpoint: endpoint,
			Method:   r.Method,
			Body:     body,
			Query:    r.URL.Query(),
		})
		if err != nil {
			msg := "unexpected proxy failure"
			if errors.Is(err, personalizer.ErrTransportExhausted) {
				msg = "recommendation service unreachable"
			}
			responses.WriteProxyError(ctx, logg, sw, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg).
				WithDetails(responses.UpstreamStatus{Status: http.StatusInternalServerError}))
			return
		}

		if !resp.OK() {
			svcErr := personalizer.Interpret(endpoint, resp)
			responses.WriteProxyError(ctx, logg, sw, pkgerrors.Wrap(pkgerrors.CodeUpstream, svcErr, svcErr.Message).
				WithDetails(responses.UpstreamStatus{Status: resp.StatusCode, Body: upstreamDetails(resp.Body)}))
			return
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		sw.Header().Set("Content-Type", contentType)
		sw.WriteHeader(resp.StatusCode)
		_, _ = sw.Write(resp.Body)
	}
}

func upstreamDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return string(body)
}
