package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a review with the same id was already stored
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable is returned when the review store cannot serve a request
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// ValidationError describes a single rejected field. It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
