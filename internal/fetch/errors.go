package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes fetch failures.
type ErrorKind string

const (
	// ErrTransientExhausted indicates the retry budget was spent on
	// transient failures (network errors, 5xx responses).
	ErrTransientExhausted ErrorKind = "TRANSIENT_EXHAUSTED"

	// ErrHTTPStatus indicates a non-retryable response status (4xx).
	ErrHTTPStatus ErrorKind = "FATAL_HTTP_STATUS"

	// ErrMalformedPagination indicates a success response whose Link
	// header could not be interpreted.
	ErrMalformedPagination ErrorKind = "MALFORMED_PAGINATION"

	// ErrTimeout indicates the overall or per-request deadline expired.
	ErrTimeout ErrorKind = "TIMEOUT"

	// ErrTLS indicates certificate verification failed.
	ErrTLS ErrorKind = "TLS_FAILURE"
)

// Error is a structured fetch error carrying the offending URL and, for
// status failures, the response code.
type Error struct {
	Kind   ErrorKind
	URL    string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: %s returned status %d", e.Kind, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a fetch Error of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
