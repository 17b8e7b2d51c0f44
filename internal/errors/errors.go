package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error types for the treeq engine
type ErrorType string

const (
	// Construction-time configuration errors (fatal)
	ErrorTypeConfig ErrorType = "config"

	// Async supplier failures (recovered as empty collections)
	ErrorTypeSource ErrorType = "source"

	// Filter state read/write failures (logged and skipped)
	ErrorTypePersist ErrorType = "persist"
)

// Sentinel configuration failures. Wrapped by ConfigError so callers can use errors.Is.
var (
	// ErrMissingLink is returned when a hierarchy has neither an item->folder
	// selector nor a folder->children selector.
	ErrMissingLink = errors.New("hierarchy requires an item folder selector or a folder children selector")

	// ErrNoRows is returned when a detached search feed is requested without
	// any row configuration.
	ErrNoRows = errors.New("search feed requires row configuration")
)

// ConfigError represents a configuration error
type ConfigError struct {
	Type       ErrorType
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Type:       ErrorTypeConfig,
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config error for field %s: %v", e.Field, e.Underlying)
	}
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// SourceError represents a failure reported by an external collection supplier
type SourceError struct {
	Type       ErrorType
	Source     string
	Underlying error
	Timestamp  time.Time
}

// NewSourceError creates a new source error
func NewSourceError(source string, err error) *SourceError {
	return &SourceError{
		Type:       ErrorTypeSource,
		Source:     source,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Underlying)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// PersistError represents a failure to read or write persisted filter state
type PersistError struct {
	Type       ErrorType
	Operation  string
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewPersistError creates a new persistence error
func NewPersistError(op, path string, err error) *PersistError {
	return &PersistError{
		Type:       ErrorTypePersist,
		Operation:  op,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *PersistError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
