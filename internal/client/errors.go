// Package client provides an HTTP client for the favorites API with
// request lifecycle tracking: timeouts, cancellation, and session expiry
// classification.
package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, client.ErrNotFound) to check.
var (
	ErrBadRequest    = errors.New("client: bad request")
	ErrUnauthorized  = errors.New("client: unauthorized")
	ErrForbidden     = errors.New("client: forbidden")
	ErrNotFound      = errors.New("client: not found")
	ErrConflict      = errors.New("client: conflict")
	ErrUnprocessable = errors.New("client: unprocessable")
	ErrServerError   = errors.New("client: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the problem
// detail from the response body.
type APIError struct {
	StatusCode int
	Detail     string
	// Unresolved carries the temp ids of a failed import, when present.
	Unresolved []string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: HTTP %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
