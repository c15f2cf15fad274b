// Package oraclerr defines the typed domain errors that cross component
// boundaries, and the single place that maps them onto wire forms (HTTP
// status codes, tool-call error payloads).
package oraclerr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a caller-supplied value that fails a contract
// check: empty query, out-of-range limit, unknown type, missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a thread, decision, trace, or file that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConflictError reports a state that rejects the requested mutation: a
// learn file that already exists, an illegal status transition.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NewConflict builds a ConflictError.
func NewConflict(message string) error {
	return &ConflictError{Message: message}
}

// BackendDegradedError reports the vector backend being unreachable or too
// slow. Callers attach it as a warning; it never fails the request.
type BackendDegradedError struct {
	Cause error
}

func (e *BackendDegradedError) Error() string {
	return fmt.Sprintf("vector backend degraded: %v", e.Cause)
}

func (e *BackendDegradedError) Unwrap() error { return e.Cause }

// NewBackendDegraded builds a BackendDegradedError.
func NewBackendDegraded(cause error) error {
	return &BackendDegradedError{Cause: cause}
}

// ToHTTPStatus maps a domain error to the HTTP status §7 assigns it.
// Unrecognized errors map to 500.
func ToHTTPStatus(err error) int {
	var v *ValidationError
	var nf *NotFoundError
	var c *ConflictError
	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &c):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
