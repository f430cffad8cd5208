package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes schema resolution and emission failures.
type ErrorKind string

const (
	// ErrCyclicInheritance indicates a definition transitively requires
	// its own expanded field set.
	ErrCyclicInheritance ErrorKind = "CYCLIC_INHERITANCE"

	// ErrUnresolvedReference indicates a "$ref" points at a definition
	// that does not exist in the document.
	ErrUnresolvedReference ErrorKind = "UNRESOLVED_REFERENCE"

	// ErrUnsupportedCombinator indicates a schema node shape the resolver
	// does not understand.
	ErrUnsupportedCombinator ErrorKind = "UNSUPPORTED_COMBINATOR"

	// ErrColumnTypeConflict indicates the same field name resolved to two
	// different column types destined for the same table.
	ErrColumnTypeConflict ErrorKind = "COLUMN_TYPE_CONFLICT"
)

// Error is a structured schema error. Schema errors are always fatal to
// the resolve/emit pass and surface verbatim to the operator: they
// indicate an upstream schema change that needs human review.
type Error struct {
	Kind ErrorKind

	// Definition names the definition being processed when the error
	// occurred.
	Definition string

	// Field names the offending field, if any.
	Field string

	// Path holds the inheritance chain for cycle errors.
	Path []string

	// TypeA and TypeB hold the conflicting column types for
	// ErrColumnTypeConflict.
	TypeA, TypeB string

	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case ErrCyclicInheritance:
		return fmt.Sprintf("%s: inheritance cycle %s", e.Kind, strings.Join(e.Path, " -> "))
	case ErrColumnTypeConflict:
		return fmt.Sprintf("%s: field %q maps to both %s and %s", e.Kind, e.Field, e.TypeA, e.TypeB)
	default:
		if e.Field != "" {
			return fmt.Sprintf("%s: %s (definition=%s, field=%s)", e.Kind, e.Message, e.Definition, e.Field)
		}
		return fmt.Sprintf("%s: %s (definition=%s)", e.Kind, e.Message, e.Definition)
	}
}

// IsKind reports whether err is a schema Error of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
