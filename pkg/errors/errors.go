// Package errors defines the typed error carried from services to the HTTP
// layer. The Code decides the status, the public message and whether
// details may leave the process.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	// CodePaymentRejected marks an authoritative gateway signature mismatch.
	CodePaymentRejected Code = "PAYMENT_REJECTED"
	CodeUpstream        Code = "UPSTREAM_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeDependency      Code = "DEPENDENCY_ERROR"
)

// Metadata is the HTTP-facing description of a Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final     = false
	retryable = true
	opaque    = false
	detailed  = true
)

var registry = map[Code]Metadata{
	CodeValidation:      {http.StatusBadRequest, final, "validation failed", detailed},
	CodeUnauthorized:    {http.StatusUnauthorized, final, "authentication required", opaque},
	CodeForbidden:       {http.StatusForbidden, final, "access denied", opaque},
	CodeNotFound:        {http.StatusNotFound, final, "resource not found", opaque},
	CodeConflict:        {http.StatusConflict, final, "conflict detected", opaque},
	CodeStateConflict:   {http.StatusUnprocessableEntity, final, "state transition disallowed", detailed},
	CodeIdempotency:     {http.StatusConflict, final, "idempotency key reused", detailed},
	CodeRateLimit:       {http.StatusTooManyRequests, final, "rate limit exceeded", opaque},
	CodePaymentRejected: {http.StatusBadRequest, final, "payment verification failed", opaque},
	CodeUpstream:        {http.StatusBadGateway, final, "recommendation service error", detailed},
	CodeInternal:        {http.StatusInternalServerError, retryable, "internal server error", opaque},
	CodeDependency:      {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := registry[code]; ok {
		return meta
	}
	return registry[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Nil receivers report CodeInternal with empty text.

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// HTTPStatus maps any error to a status; untyped errors are 500s.
func HTTPStatus(err error) int {
	if typed := As(err); typed != nil {
		return MetadataFor(typed.code).HTTPStatus
	}
	return http.StatusInternalServerError
}
