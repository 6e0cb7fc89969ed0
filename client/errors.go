package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for failures that carry no HTTP status.
var (
	ErrTransport         = errors.New("backend unreachable")
	ErrMalformedResponse = errors.New("malformed backend response")
)

// APIError represents an error status returned by the backend.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func asAPIError(err error) (*APIError, bool) {
	var e *APIError
	ok := errors.As(err, &e)
	return e, ok
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool {
	if e, ok := asAPIError(err); ok {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool {
	if e, ok := asAPIError(err); ok {
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsClientError returns true for 4xx responses other than 429.
func IsClientError(err error) bool {
	if e, ok := asAPIError(err); ok {
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// IsTransient reports whether retrying the same request may succeed: network
// failures, 5xx and 429. Malformed responses and other 4xx are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	if e, ok := asAPIError(err); ok {
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// parseAPIError decodes either a {"code","message"} or an {"error"} body and
// falls back to the raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var wire struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		apiErr.Code = wire.Code
		apiErr.Message = wire.Message
		if apiErr.Message == "" {
			apiErr.Message = wire.Error
		}
	}

	if apiErr.Code == "" {
		apiErr.Code = strings.ReplaceAll(strings.ToLower(http.StatusText(statusCode)), " ", "_")
		if apiErr.Code == "" {
			apiErr.Code = "unknown"
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}
