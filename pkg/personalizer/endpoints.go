package personalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
)

// Endpoint names a path on the recommendation service.
type Endpoint string

const (
	EndpointInit       Endpoint = "init"
	EndpointSubmit     Endpoint = "submit"
	EndpointNext       Endpoint = "next"
	EndpointBack       Endpoint = "back"
	EndpointSuggestion Endpoint = "suggestion"
	EndpointFollowup   Endpoint = "followup"
	EndpointReset      Endpoint = "reset"
)

// AnswerDelimiter joins multi-part answers sent to submit and followup.
const AnswerDelimiter = "`"

var endpoints = map[Endpoint]string{
	EndpointInit:       http.MethodGet,
	EndpointSubmit:     http.MethodPost,
	EndpointNext:       http.MethodGet,
	EndpointBack:       http.MethodGet,
	EndpointSuggestion: http.MethodGet,
	EndpointFollowup:   http.MethodGet,
	EndpointReset:      http.MethodGet,
}

// ParseEndpoint validates a raw endpoint name.
func ParseEndpoint(raw string) (Endpoint, bool) {
	e := Endpoint(strings.ToLower(strings.Trim(strings.TrimSpace(raw), "/")))
	_, ok := endpoints[e]
	return e, ok
}

// Method returns the HTTP method the service expects for the endpoint.
func (e Endpoint) Method() string {
	if m, ok := endpoints[e]; ok {
		return m
	}
	return http.MethodGet
}

// ServiceError is a response the service delivered but flagged as failed,
// either with a non-2xx status or a JSON body carrying status "error".
type ServiceError struct {
	Endpoint   Endpoint
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("personalizer %s failed (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// InitResult is the payload returned by init.
type InitResult struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// Init opens a new session.
func (c *Client) Init(ctx context.Context) (InitResult, error) {
	raw, err := c.do(ctx, Request{Endpoint: EndpointInit})
	if err != nil {
		return InitResult{}, err
	}
	var out InitResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return InitResult{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode init response")
	}
	out.SessionID = strings.TrimSpace(out.SessionID)
	if out.SessionID == "" {
		return InitResult{}, pkgerrors.New(pkgerrors.CodeUpstream, "recommendation service returned no session id")
	}
	return out, nil
}

// Submit sends the answer for the current question.
func (c *Client) Submit(ctx context.Context, sessionID, answer string) (json.RawMessage, error) {
	return c.do(ctx, Request{
		Endpoint: EndpointSubmit,
		Body: map[string]string{
			"session_id": sessionID,
			"ans":        answer,
		},
	})
}

// Next fetches the following question text.
func (c *Client) Next(ctx context.Context, sessionID string) (string, error) {
	raw, err := c.do(ctx, Request{Endpoint: EndpointNext, Query: sessionQuery(sessionID)})
	if err != nil {
		return "", err
	}
	var out struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode next response")
	}
	return out.Question, nil
}

// Back rewinds the remote session by one question.
func (c *Client) Back(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return c.do(ctx, Request{Endpoint: EndpointBack, Query: sessionQuery(sessionID)})
}

// Suggestion asks for up to k ranked suggestions for query.
func (c *Client) Suggestion(ctx context.Context, sessionID, query string, k int) ([]Suggestion, error) {
	q := sessionQuery(sessionID)
	q.Set("query", query)
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}
	raw, err := c.do(ctx, Request{Endpoint: EndpointSuggestion, Query: q})
	if err != nil {
		return nil, err
	}
	items, err := NormalizeSuggestions(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode suggestion response")
	}
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items, nil
}

// Followup sends free-text feedback on the current results. auxID, when set,
// is appended to the answer with AnswerDelimiter.
func (c *Client) Followup(ctx context.Context, sessionID, answer, auxID string) ([]Suggestion, error) {
	ans := answer
	if aux := strings.TrimSpace(auxID); aux != "" {
		ans = answer + AnswerDelimiter + aux
	}
	q := sessionQuery(sessionID)
	q.Set("ans", ans)
	raw, err := c.do(ctx, Request{Endpoint: EndpointFollowup, Query: q})
	if err != nil {
		return nil, err
	}
	items, err := NormalizeSuggestions(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode followup response")
	}
	return items, nil
}

// Reset clears server-side conversation state.
func (c *Client) Reset(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, Request{Endpoint: EndpointReset})
}

func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recommendation service unavailable")
	}
	if svcErr := Interpret(req.Endpoint, resp); svcErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, svcErr, svcErr.Message).
			WithDetails(map[string]any{"endpoint": string(req.Endpoint), "status": svcErr.StatusCode})
	}
	return json.RawMessage(resp.Body), nil
}

// Interpret converts a delivered response into a ServiceError when the
// service reported failure. It returns nil for successful responses.
func Interpret(endpoint Endpoint, resp *Response) *ServiceError {
	if resp == nil {
		return &ServiceError{Endpoint: endpoint, Message: "empty response"}
	}
	if !resp.OK() {
		return &ServiceError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}
	var envelope map[string]any
	if err := json.Unmarshal(resp.Body, &envelope); err == nil {
		if status, _ := envelope["status"].(string); strings.EqualFold(status, "error") {
			return &ServiceError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: errorMessage(resp)}
		}
	}
	return nil
}

func errorMessage(resp *Response) string {
	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if msg, ok := body[key].(string); ok && strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(resp.Body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "request failed"
}

func sessionQuery(sessionID string) url.Values {
	q := url.Values{}
	q.Set("session_id", sessionID)
	return q
}
