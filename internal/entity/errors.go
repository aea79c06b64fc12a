package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Validation errors
	ErrEmptyBody        = errors.New("request body is empty")
	ErrInvalidJSON      = errors.New("request body is not valid JSON")
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Document store errors
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidUserID    = errors.New("invalid user id")

	// Model errors
	ErrModelNotConfigured = errors.New("model API key is not configured")
	ErrEmptyCompletion    = errors.New("model returned an empty completion")
)

// ValidationError reports a request that was rejected before any side effect.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func NewValidationError(err error, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UpstreamError is a failed exchange with the model service.
type UpstreamError struct {
	StatusCode int
	Auth       bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("model service unreachable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// EncodingError is raised when text that must be UTF-8 is not.
type EncodingError struct {
	// Where names the payload part that failed: "request", "stream" or a message role.
	Where  string
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in %s at byte %d", e.Where, e.Offset)
}

// IsEncodingError reports whether err carries an EncodingError.
func IsEncodingError(err error) bool {
	var encErr *EncodingError
	return errors.As(err, &encErr)
}

// IsAuthError reports whether err is an upstream authentication failure.
func IsAuthError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.Auth
}
