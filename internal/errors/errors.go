// Package errors defines the JSON error envelope shared by every HTTP
// surface of gobiome.
//
// Handlers and middleware never write ad-hoc error bodies: they build an
// ErrorEnvelope (or return an *APIError) and hand it to the writers here so
// clients always receive the same shape:
//
//	{"error": {"code": "...", "message": "...", "request_id": "...", "details": {...}}}
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable codes carried in error envelopes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

type ctxKey int

const requestIDKey ctxKey = iota

// ContextWithRequestID stores the correlation id for the current request.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation id set by the request-id
// middleware, or "" when none is present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ErrorEnvelope is the internal form of an API error before it is written
// to the wire.
type ErrorEnvelope struct {
	Code      string
	Message   string
	RequestID string
	Details   map[string]any
}

// NewErrorEnvelope builds an envelope with the given code and message.
func NewErrorEnvelope(code, message string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: code, Message: message}
}

// WithRequestID attaches the correlation id and returns the envelope.
func (e *ErrorEnvelope) WithRequestID(id string) *ErrorEnvelope {
	e.RequestID = id
	return e
}

// WithDetails attaches structured context and returns the envelope.
func (e *ErrorEnvelope) WithDetails(details map[string]any) *ErrorEnvelope {
	e.Details = details
	return e
}

// HTTPErrorPayload is the wire form of an error envelope.
type HTTPErrorPayload struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the top-level JSON error body.
type HTTPErrorResponse struct {
	Error HTTPErrorPayload `json:"error"`
}

// HTTPResponse converts the envelope into its wire form.
func (e *ErrorEnvelope) HTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{Error: HTTPErrorPayload{
		Code:      e.Code,
		Message:   e.Message,
		RequestID: e.RequestID,
		Details:   e.Details,
	}}
}

// WriteHTTPError serializes the envelope to w with the given status code.
func WriteHTTPError(w http.ResponseWriter, status int, envelope *ErrorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope.HTTPResponse())
}

// APIError is an error carrying its own HTTP mapping. Handlers return it
// (directly or wrapped) when a failure has a known status and code.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// BadRequest builds a 400 APIError.
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message}
}

// Unauthorized builds a 401 APIError.
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// NotFound builds a 404 APIError.
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Internal builds a 500 APIError wrapping err.
func Internal(message string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// RespondWithError maps err to an error envelope and writes it. *APIError
// values keep their status and code; anything else is reported as a 500
// INTERNAL_ERROR. The message never includes wrapped causes for non-API
// errors beyond err.Error() itself.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestIDFromContext(r.Context())

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		envelope := NewErrorEnvelope(apiErr.Code, apiErr.Message).
			WithRequestID(requestID).
			WithDetails(apiErr.Details)
		WriteHTTPError(w, apiErr.Status, envelope)
		return
	}

	envelope := NewErrorEnvelope(CodeInternal, err.Error()).WithRequestID(requestID)
	WriteHTTPError(w, http.StatusInternalServerError, envelope)
}

// NotFoundHandler is the router fallback for unknown paths.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	envelope := NewErrorEnvelope(CodeNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)).
		WithRequestID(RequestIDFromContext(r.Context()))
	WriteHTTPError(w, http.StatusNotFound, envelope)
}

// MethodNotAllowedHandler is the router fallback for known paths hit with
// the wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	envelope := NewErrorEnvelope(CodeMethodNotAllowed, fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path)).
		WithRequestID(RequestIDFromContext(r.Context()))
	WriteHTTPError(w, http.StatusMethodNotAllowed, envelope)
}
