package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed call once, at the transport boundary.
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "unauthorized"
	KindRateLimited        ErrorKind = "rate_limited"
	KindBadRequest         ErrorKind = "bad_request"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindUnknown            ErrorKind = "unknown"
)

var ErrSchemaWithSearch = errors.New("response schema and search grounding cannot be combined")

type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("gemini API %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("gemini %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("gemini %s: %s", e.Kind, e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *APIError in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func newHTTPError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
	}
	apiErr.Kind = classify(statusCode, apiErr.Status, apiErr.Message)
	return apiErr
}

func newTransportError(err error) *APIError {
	return &APIError{Kind: KindServiceUnavailable, Err: err}
}

func classify(statusCode int, status, message string) ErrorKind {
	// The API answers an invalid key with 400 INVALID_ARGUMENT.
	if strings.Contains(message, "API key not valid") || strings.Contains(message, "API_KEY_INVALID") {
		return KindUnauthorized
	}

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden, status == "PERMISSION_DENIED", status == "UNAUTHENTICATED":
		return KindUnauthorized
	case statusCode == http.StatusTooManyRequests, status == "RESOURCE_EXHAUSTED":
		return KindRateLimited
	case statusCode == http.StatusBadRequest, statusCode == http.StatusNotFound, statusCode == http.StatusRequestEntityTooLarge:
		return KindBadRequest
	case statusCode >= 500:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}
