// Package proxy holds the stateless pass-through handlers that front the
// recommendation service and the payment gateway for browser clients.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/types"
)

const maxBodyBytes int64 = 1 << 20

// statusWriter remembers the status written so it can be counted.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed+", OPTIONS")
	responses.WriteJSON(w, http.StatusMethodNotAllowed, types.ProxyError{
		Error:   "method not allowed",
		Details: map[string]string{"allowed": allowed},
	})
}

// readJSONBody returns the raw body, or nil when it is empty. Non-JSON bodies
// are a validation error.
func readJSONBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body")
	}
	if int64(len(raw)) > maxBodyBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body must be valid JSON")
	}
	return raw, nil
}
