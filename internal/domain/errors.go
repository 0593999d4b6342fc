package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes by the
// transport layer. The engine itself never speaks HTTP; it only classifies.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates an unknown node id or path
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input or a containment-rule violation
	ValidationError struct {
		Message string
	}

	// CycleError indicates a move/copy target inside the moved subtree
	CycleError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *CycleError) Error() string      { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *CycleError) StatusCode() int      { return http.StatusConflict }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
	ErrCycle      = errors.New("target inside moved subtree")
)

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *CycleError) Is(target error) bool      { return target == ErrCycle }

// ConflictError represents a name collision, a duplicate tag, or a stale
// precondition invalidated by a concurrent writer.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (node, tag, config pv)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
