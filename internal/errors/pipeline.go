// Error taxonomy of the pack opening pipeline.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ValidationError is a caller-input problem, e.g. an unknown viewer or set.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError is an operator-input problem, e.g. drop rates which resolve to no tier.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Configuration builds a ConfigurationError from a format string.
func Configuration(format string, args ...interface{}) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// TransportError is a socket or network failure while talking to the notification source.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CredentialError is a failure to obtain an access token.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential error: %v", e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Is and As are re-exported so callers don't need both errors packages.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
