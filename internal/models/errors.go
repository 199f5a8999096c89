package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks rejected user input; no mutation was performed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a user or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a versioned write lost the race.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrUserExists is returned on registration with a taken email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned for a missing, expired or revoked session.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
