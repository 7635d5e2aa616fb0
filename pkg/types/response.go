// Package types holds the JSON envelopes every wallet endpoint responds with.
package types

// SuccessEnvelope wraps every successful response body under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of an engine error: a stable machine-readable
// code plus a human message. Details are only populated for codes whose
// metadata allows them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError; a response carries either this or a
// SuccessEnvelope, never both.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
