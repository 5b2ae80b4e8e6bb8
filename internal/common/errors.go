// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Session errors.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("not signed in")
	ErrAuthFailed       = errors.New("login failed")

	// Request errors.
	ErrRequestFailed  = errors.New("request failed")
	ErrNetworkFailure = errors.New("network failure")

	// Upload errors.
	ErrValidation = errors.New("validation failed")

	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ValidationError is a client-side rejection raised before any request is made.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Message extracts the text a view should show for err.
// User and validation errors show their own message; anything else shows fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var msgErr interface{ UserFacingMessage() string }
	if errors.As(err, &msgErr) {
		if msg := msgErr.UserFacingMessage(); msg != "" {
			return msg
		}
	}

	if errors.Is(err, ErrUnauthorized) {
		return "Your session has expired. Please sign in again."
	}

	return fallback
}
