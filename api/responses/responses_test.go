package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/types"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"id": "bk_1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[types.SuccessEnvelope](t, rec)
	assert.Equal(t, map[string]any{"id": "bk_1"}, body.Data)
}

func TestWriteErrorEnvelope(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation keeps text and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "email"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "bad input",
			wantDetails: true,
		},
		{
			name:    "payment rejection is a 400",
			err:     pkgerrors.New(pkgerrors.CodePaymentRejected, "invalid payment signature"),
			status:  http.StatusBadRequest,
			code:    pkgerrors.CodePaymentRejected,
			message: "invalid payment signature",
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("db password leaked"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:        "dependency hides text",
			err:         pkgerrors.New(pkgerrors.CodeDependency, "redis at 10.0.0.3 refused").WithDetails(map[string]any{"dep": "redis"}),
			status:      http.StatusServiceUnavailable,
			code:        pkgerrors.CodeDependency,
			message:     "dependency unavailable",
			wantDetails: true,
		},
		{
			name:    "not found hides details",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "booking not found").WithDetails(map[string]any{"owner": "u1"}),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "booking not found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decode[types.ErrorEnvelope](t, rec)
			assert.Equal(t, string(tc.code), body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
			assert.Equal(t, tc.wantDetails, body.Error.Details != nil)
		})
	}
}

func TestWriteErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteProxyError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeUpstream, "session expired").
		WithDetails(UpstreamStatus{Status: http.StatusGatewayTimeout, Body: "upstream timed out"})
	WriteProxyError(context.Background(), nil, rec, err)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	body := decode[types.ProxyError](t, rec)
	assert.Equal(t, "session expired", body.Error)
	assert.Equal(t, "upstream timed out", body.Details)

	rec = httptest.NewRecorder()
	WriteProxyError(context.Background(), nil, rec, errors.New("db password leaked"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[types.ProxyError](t, rec).Error)
}
