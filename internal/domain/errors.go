package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed enqueue payloads and bad config values
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownConfigKey is returned when setting a config key that does not exist
	ErrUnknownConfigKey = fmt.Errorf("%w: unknown config key", ErrInvalidInput)

	// ErrJobAlreadyExists is returned when enqueueing with an id that is already stored
	ErrJobAlreadyExists = fmt.Errorf("%w: job already exists", ErrInvalidInput)

	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrStorageFailure marks faults raised by the durable store
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidTransition is returned when a lifecycle transition is not allowed from the job's state
	ErrInvalidTransition = errors.New("invalid state transition")
)

// StorageError wraps a driver or I/O error raised by a store operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorageFailure) match any StorageError
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// NewStorageError creates a new storage error for the given operation
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// InvalidInputf formats an ErrInvalidInput with detail
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
