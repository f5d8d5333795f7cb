package types

// SuccessEnvelope wraps every successful API body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps every API failure as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the public face of a typed error. Code is the stable
// machine-readable value clients branch on.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ProxyError is the flat body of the pass-through proxy routes, which keep
// the shape their upstream clients already parse.
type ProxyError struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
