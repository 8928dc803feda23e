// Package gomodel defines various error types for ORM operations.
package gomodel

import (
	"fmt"
	"strings"
)

// NotRegisteredError is returned when an operation is attempted on a Go type
// that has not been registered with the ORM.
type NotRegisteredError struct {
	TypeName string
}

// Error returns the error message for NotRegisteredError.
func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("type %q is not registered", e.TypeName)
}

// KeyAttributeError is returned when a mandatory key value is missing
// during an insert, update or delete operation.
type KeyAttributeError struct {
	TypeName  string
	FieldName string
	Operation string
}

// Error returns the error message for KeyAttributeError.
func (e *KeyAttributeError) Error() string {
	return fmt.Sprintf("key field %q on %s is required for %s",
		e.FieldName, e.TypeName, e.Operation)
}

// HydrationError is returned when an error occurs while populating a Go struct
// with data read from the store.
type HydrationError struct {
	TypeName string
	Field    string
	Cause    error
}

// Error returns the error message for HydrationError.
func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrating %s.%s: %v", e.TypeName, e.Field, e.Cause)
}

// Unwrap returns the underlying cause of the HydrationError.
func (e *HydrationError) Unwrap() error {
	return e.Cause
}

// NotFoundError is returned when a lookup expected to return instances
// finds no (or not all) matching rows. Keys holds the identifiers that
// could not be resolved, when known.
type NotFoundError struct {
	TypeName string
	Keys     []any
}

// Error returns the error message for NotFoundError.
func (e *NotFoundError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("%s: not found", e.TypeName)
	}
	parts := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		parts[i] = fmt.Sprint(k)
	}
	return fmt.Sprintf("%s: not found: [%s]", e.TypeName, strings.Join(parts, ", "))
}

// NotUniqueError is returned when a query expected to return a single
// unique instance finds multiple matches.
type NotUniqueError struct {
	TypeName string
	Count    int
}

// Error returns the error message for NotUniqueError.
func (e *NotUniqueError) Error() string {
	return fmt.Sprintf("%s: expected unique, got %d", e.TypeName, e.Count)
}

// UniqueViolationError is returned when a write conflicts with a unique or
// primary-key constraint. Cause is the driver error.
type UniqueViolationError struct {
	Table      string
	Constraint string
	Cause      error
}

// Error returns the error message for UniqueViolationError.
func (e *UniqueViolationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s: unique violation on %s: %v", e.Table, e.Constraint, e.Cause)
	}
	return fmt.Sprintf("%s: unique violation: %v", e.Table, e.Cause)
}

// Unwrap returns the underlying driver error.
func (e *UniqueViolationError) Unwrap() error {
	return e.Cause
}
