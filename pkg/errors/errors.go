// Package errors provides custom error types for the civicsync system.
// These errors enable programmatic error checking across the ingestion
// pipelines and map directly onto the engine's error taxonomy: transient
// source errors, per-item transform errors, load errors, and fatal
// configuration errors.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the civicsync system
var (
	// ErrNotFound indicates that a requested resource was not found.
	// Fetchers also receive it for HTTP 404, which terminates pagination.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAPIKeyRequired indicates that an API key is required but not provided
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrRateLimited indicates that a source's rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceUnavailable indicates that an external source is temporarily unavailable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrNotConnected indicates a store operation before Connect
	ErrNotConnected = errors.New("store not connected")
)

// APIError represents an error from an external source API.
type APIError struct {
	Source     string // Source ID as string
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 404:
		return target == ErrNotFound
	case e.StatusCode == 429:
		return target == ErrRateLimited
	case e.StatusCode >= 500:
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, endpoint, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// ConfigError represents a configuration error. Configuration errors are
// fatal: they are raised before any fetch begins and abort the run.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ValidationError represents a validation failure on a canonical record field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// TransformError represents a per-item transform failure. The engine counts
// it and continues with the next item; it never aborts a run.
type TransformError struct {
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *TransformError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("transform error in %s: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("transform error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransformError) Unwrap() error {
	return e.Err
}

// NewTransformError creates a new TransformError
func NewTransformError(source, message string, err error) *TransformError {
	return &TransformError{Source: source, Message: message, Err: err}
}

// LoadError represents a rejected write. Like transform errors it is
// counted per item and the loop continues.
type LoadError struct {
	Collection string
	Key        string
	Err        error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("load error for %s %q: %v", e.Collection, e.Key, e.Err)
	}
	return fmt.Sprintf("load error for %s: %v", e.Collection, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new LoadError
func NewLoadError(collection, key string, err error) *LoadError {
	return &LoadError{Collection: collection, Key: key, Err: err}
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml", "xml"
	Subject string // URL or file the payload came from
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("parse error in %s from %s: %s", e.Format, e.Subject, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, subject, message string, err error) *ParseError {
	return &ParseError{Format: format, Subject: subject, Message: message, Err: err}
}

// PipelineError represents a failed pipeline run inside the orchestrator.
// It is recorded in the run report and does not abort independent pipelines.
type PipelineError struct {
	Pipeline string
	Err      error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s failed: %v", e.Pipeline, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(pipeline string, err error) *PipelineError {
	return &PipelineError{Pipeline: pipeline, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsSourceUnavailable checks if an error indicates source unavailability
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfig checks if an error is a fatal configuration error
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapTransform wraps an error as a TransformError
func WrapTransform(source string, err error) error {
	if err == nil {
		return nil
	}
	return &TransformError{Source: source, Message: err.Error(), Err: err}
}

// WrapLoad wraps an error as a LoadError
func WrapLoad(collection, key string, err error) error {
	if err == nil {
		return nil
	}
	return NewLoadError(collection, key, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, subject string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, subject, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
