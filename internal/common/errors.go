// Package common defines shared sentinel errors used across the persistence
// and auth layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound   = errors.New("not found")
	ErrConstraint = errors.New("constraint violation")

	// Record store query-building errors.
	ErrUnsortableColumn = errors.New("column is not sortable")
	ErrInvalidPredicate = errors.New("invalid predicate")

	// Auth errors.
	ErrAlreadyExists = errors.New("already exists")
	ErrWeakPassword  = errors.New("password too weak")
)
