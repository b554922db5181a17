package recipe

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is. Each typed error below reports Is true
// for its sentinel.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports missing or malformed caller-supplied identity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports a create with an id that is already stored.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("recipe %q already exists", e.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotFoundError reports an update or delete of an id that is not stored.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("recipe %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the underlying key-value medium. A write
// that returns a StorageError must be assumed not to have happened.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// RequireID returns a ValidationError when id is empty or blank.
func RequireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	return nil
}
