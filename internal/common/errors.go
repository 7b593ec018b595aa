// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Categorization errors.
	ErrNoTransactions    = errors.New("no transactions to categorize")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrModelUnavailable  = errors.New("model client unavailable")
	ErrMalformedResponse = errors.New("malformed model response")

	// Learning-loop errors.
	ErrCanaryRequired   = errors.New("rule version has no passing canary test")
	ErrNoParentVersion  = errors.New("rule version has no parent to roll back to")
	ErrVersionNotActive = errors.New("rule version is not active")

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

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
