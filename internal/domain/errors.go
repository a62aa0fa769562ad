package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface lets the handler layer stay open to new
// error types without growing a switch per type.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input, rejected before any store mutation
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ConflictError represents a sibling name collision with details about the
// existing node, so handlers can return the conflicting resource with a 409.
type ConflictError struct {
	Message      string
	ResourceType string // "folder" or "file"
	ResourceID   string // ID of the existing/conflicting node
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// UnresolvableError indicates a batch import whose dependency graph could not
// be resolved: a parent_temp_id pointing outside the batch, or a cycle.
// The whole batch is rolled back; Unresolved lists the temp ids still blocked.
type UnresolvableError struct {
	Message    string
	Unresolved []string
}

func (e *UnresolvableError) Error() string {
	return e.Message
}

func (e *UnresolvableError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
