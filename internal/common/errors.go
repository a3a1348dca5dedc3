// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Task errors.
	ErrTaskSpecInvalid   = errors.New("task specification invalid")
	ErrUnresolvableRoot  = errors.New("unresolvable root attribute")
	ErrTargetNotInTable  = errors.New("target attribute not present in transaction table")
	ErrEmptyTable        = errors.New("transaction table is empty")
	ErrUnknownMiningMode = errors.New("unknown mining mode")
	ErrMalformedDocument = errors.New("malformed task document")
	ErrUnsupportedFormat = errors.New("unsupported format")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports a task specification that cannot be mined.
// It always unwraps to ErrTaskSpecInvalid.
type ValidationError struct {
	Err     error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid task (%s): %s", e.Field, e.Message)
	}
	return "invalid task: " + e.Message
}

// Unwrap returns both the sentinel and the cause, if any.
func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTaskSpecInvalid, e.Err}
	}
	return []error{ErrTaskSpecInvalid}
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

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
