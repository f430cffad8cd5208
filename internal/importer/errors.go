package importer

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes fatal import failures.
type ErrorKind string

const (
	// ErrMalformedElement indicates an element without an identifier or
	// type tag; the document does not conform to the expected format.
	ErrMalformedElement ErrorKind = "MALFORMED_ELEMENT"
)

// Error is a fatal import error.
type Error struct {
	Kind      ErrorKind
	Index     int
	ElementID string
	Message   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ElementID != "" {
		return fmt.Sprintf("%s: element %q (index %d): %s", e.Kind, e.ElementID, e.Index, e.Message)
	}
	return fmt.Sprintf("%s: element at index %d: %s", e.Kind, e.Index, e.Message)
}

// IsKind reports whether err is an import Error of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind == kind
	}
	return false
}

// DanglingReference records a relation whose target identifier appears
// nowhere in the imported element collection. Dangling references are
// accumulated, not fatal: the relation row is skipped and reported.
type DanglingReference struct {
	RelationID string
	OriginID   string
	Role       string
	TargetID   string
}

// String renders the warning for operator output.
func (d DanglingReference) String() string {
	return fmt.Sprintf("relation %s (%s -[%s]-> %s): target not in element collection",
		d.RelationID, d.OriginID, d.Role, d.TargetID)
}
