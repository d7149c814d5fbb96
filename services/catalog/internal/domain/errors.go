package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound: a named entity, actor or asset does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation: input rejected before any I/O.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: unique or foreign key violation on write; nothing committed.
	ErrConflict = errors.New("conflict")
	// ErrMalformedRow: relational data for one row cannot be assembled.
	ErrMalformedRow = errors.New("malformed row")
)

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
