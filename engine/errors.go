package engine

import (
	"fmt"
	"strings"
)

// UnsupportedOperatorError is returned when a filter uses an operator the
// translator cannot lower. It is always surfaced, never silently dropped.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	if e.Operator == "$not" {
		return `unsupported filter operator "$not": negate per-field with $ne instead`
	}
	return fmt.Sprintf("unsupported filter operator %q", e.Operator)
}

// InvalidFilterError is returned for structurally malformed filters: corrupt
// legacy arrays, a $between value that is not a 2-element array, combinator
// members that are not objects.
type InvalidFilterError struct {
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter: " + e.Reason
}

// SchemaNotFoundError is returned when an operation needs metadata for an
// object that was never registered.
type SchemaNotFoundError struct {
	Object string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("no schema registered for object %q", e.Object)
}

// CircularDependencyError reports a reference cycle in the dependency graph,
// a configuration error surfaced by explicit validation.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Path, " -> ")
}

// DriverUnsupportedOperationError is returned when neither the standard nor
// the legacy driver shape can serve the requested operation.
type DriverUnsupportedOperationError struct {
	Operation string
}

func (e *DriverUnsupportedOperationError) Error() string {
	return fmt.Sprintf("driver does not support operation %q", e.Operation)
}
