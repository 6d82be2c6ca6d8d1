package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	// Code is the machine-readable kind, e.g. "invalid_input" or "store_unavailable".
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("textupsert: API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("textupsert: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsInvalidInput reports a rejected request body.
func IsInvalidInput(err error) bool {
	s := statusOf(err)
	return s == http.StatusBadRequest || s == http.StatusRequestEntityTooLarge
}

// IsUnauthorized reports a missing or wrong bearer token.
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsRateLimited reports a 429.
func IsRateLimited(err error) bool { return statusOf(err) == http.StatusTooManyRequests }

// IsUnavailable reports an upstream failure (502) or an uninitialized service (503).
// Retrying an upsert only overwrites the earlier attempt when the request carries an ID.
func IsUnavailable(err error) bool {
	s := statusOf(err)
	return s == http.StatusBadGateway || s == http.StatusServiceUnavailable
}
