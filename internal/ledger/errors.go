package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/storage"
)

// Sentinel errors. Every error returned by the engine matches exactly one
// of them with errors.Is, except context cancellation which is returned
// unchanged.
var (
	// ErrValidation marks malformed or out-of-range input. Nothing was written.
	ErrValidation = errors.New("ledger: invalid input")

	// ErrNotFound marks a referenced record that does not exist or does not
	// belong to the requester. Nothing was written.
	ErrNotFound = errors.New("ledger: not found")

	// ErrAlreadyExists marks a unique key that is already taken.
	ErrAlreadyExists = errors.New("ledger: already exists")

	// ErrConflict marks a concurrent modification that survived every retry.
	// The operation was not applied and may be retried by the caller.
	ErrConflict = errors.New("ledger: concurrent modification")

	// ErrStore marks an underlying store failure. The atomic unit was
	// rolled back.
	ErrStore = errors.New("ledger: store failure")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
}

// classify maps store errors onto the engine's sentinels. Errors that
// already carry an engine sentinel pass through.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict),
		errors.Is(err, ErrStore):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, storage.ErrDuplicate):
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyExists, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if the input was rejected.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStore)
}
