package shared

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
	Name   string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError indicates a uniqueness violation or a delete blocked by
// dependent records. Dependents carries the blocking count when relevant.
type ConflictError struct {
	Entity     string
	Reason     string
	Dependents int
}

func (e *ConflictError) Error() string {
	if e.Dependents > 0 {
		return fmt.Sprintf("%s: %s (%d dependents)", e.Entity, e.Reason, e.Dependents)
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

// ValidationError indicates malformed input, e.g. an unknown action value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: %s", e.Reason)
}

// ResolutionError indicates permission computation could not complete.
// The resolver never returns a partial set alongside it.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("permission resolution failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// UserSafeMessage returns a message suitable for API consumers. Internal
// failures collapse to a generic string so store details never leak.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err), IsConflict(err), IsValidation(err):
		return err.Error()
	default:
		return "internal error"
	}
}
