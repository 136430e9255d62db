package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown appointment ids and cancellation tokens.
	ErrNotFound = errors.New("not found")
	// ErrConflict means an overlap was detected on a serialized write path:
	// either a booking race or a reassignment onto an occupied window.
	ErrConflict = errors.New("scheduling conflict")
	// ErrAlreadyCancelled is the idempotency guard on cancellation; callers
	// should treat it as a no-op success, not a failure.
	ErrAlreadyCancelled = errors.New("appointment already cancelled")
)

// ValidationError reports a malformed or missing booking field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps an unexpected persistence failure. It is the only error
// class a caller may reasonably retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr passes through the engine's own error kinds and wraps anything
// else as a StorageError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyCancelled) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
