package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrValidation      = errors.New("validation failed")
	ErrInUse           = errors.New("entity in use")
	ErrMalformedImport = errors.New("malformed import")
)

// ValidationError reports input the reducer refuses, such as an empty name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// InUseError reports a removal that would orphan dependent records.
type InUseError struct {
	Entity     EntityType
	ID         string
	Dependent  EntityType
	Dependents []string
}

func (e InUseError) Error() string {
	return fmt.Sprintf("%s %q still referenced by %d %s(s): %s", e.Entity, e.ID, len(e.Dependents), e.Dependent, strings.Join(e.Dependents, ", "))
}

// Is matches ErrInUse.
func (e InUseError) Is(target error) bool { return target == ErrInUse }

// ImportError reports a snapshot payload rejected before any state change.
type ImportError struct {
	Reason string
	Err    error
}

func (e ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import rejected: %s: %v", e.Reason, e.Err)
	}
	return "import rejected: " + e.Reason
}

// Unwrap exposes the underlying decode error, if any.
func (e ImportError) Unwrap() error { return e.Err }

// Is matches ErrMalformedImport.
func (e ImportError) Is(target error) bool { return target == ErrMalformedImport }
