// Package util provides logging, common error types and small helpers.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across packages. Typed errors below unwrap to these
// so callers can branch with errors.Is.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAmbiguous     = errors.New("ambiguous match")
	ErrInvalidFormat = errors.New("invalid identifier format")
	ErrEmptyData     = errors.New("no data")
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrRequestFailed = errors.New("request failed")
	ErrValidation    = errors.New("validation failed")
)

// ConfigError is a fatal configuration problem detected before any network call.
type ConfigError struct {
	Setting string
	Details string
}

func (e *ConfigError) Error() string {
	if e.Setting == "" {
		return e.Details
	}
	return fmt.Sprintf("%s: %s", e.Setting, e.Details)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a configuration error
func NewConfigError(setting, details string) *ConfigError {
	return &ConfigError{Setting: setting, Details: details}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
