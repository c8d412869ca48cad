// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when GitHub rejects the user's credential.
	// Callers must not retry it; the user has to authenticate again.
	ErrUnauthorized = errors.New("github rejected the access token")
	// ErrForbidden is returned when GitHub denies access to a resource.
	ErrForbidden = errors.New("access to the resource is forbidden")
	// ErrNotFound is returned when GitHub has no such resource.
	ErrNotFound = errors.New("resource not found")
	// ErrMissingToken is returned when a request carries no access token.
	ErrMissingToken = errors.New("missing access token")
	// ErrReviewerDisabled is returned when no language model is configured.
	ErrReviewerDisabled = errors.New("code review is not configured")
	// ErrPageRejected is returned when an upstream page had records but none
	// passed validation. It does not mark the end of the data.
	ErrPageRejected = errors.New("every record on the page failed validation")
)

// TransportError wraps a network or decoding failure. It is recoverable by a manual retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrInvalidPage is returned when a page cursor is not a positive integer.
type ErrInvalidPage struct {
	Page int
}

func (e *ErrInvalidPage) Error() string {
	return fmt.Sprintf("invalid page %d, pages start at 1", e.Page)
}

// ValidationError reports a field that failed validation at an input boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
