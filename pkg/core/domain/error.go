package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrCodeAlreadyExists  = errors.New("short code already exists")
	ErrNotFound           = errors.New("link not found")
	ErrExpired            = errors.New("link has expired")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrCodeSpaceExhausted = errors.New("could not generate an unused short code")

	// ErrStorage matches every *StorageError through errors.Is.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a failure of the durable store.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err, returning nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
