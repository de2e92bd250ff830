package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrValidation           = errors.New("validation error")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrConfigurationInvalid = errors.New("configuration invalid")
	ErrSelectionMismatch    = errors.New("selection mismatch")
	ErrTransport            = errors.New("transport failure")
	ErrOrphanedUpload       = errors.New("orphaned upload")
	ErrBusy                 = errors.New("operation in progress")
	ErrNoTarget             = errors.New("no target record or field")
	ErrInvalidSnapshot      = errors.New("invalid sketch snapshot")
	ErrSelectionChanged     = errors.New("selection changed during operation")
)

// ErrSketchNotFound is returned by load when the field holds no sketch.json.
var ErrSketchNotFound = fmt.Errorf("sketch.json attachment: %w", ErrNotFound)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// ConfigurationError carries the user-facing message of an invalid settings snapshot.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return "configuration invalid: " + e.Message }

func (e *ConfigurationError) Unwrap() error { return ErrConfigurationInvalid }

// SelectionMismatchError is raised when a record action cannot be applied
// to the current settings. It never changes selection state.
type SelectionMismatchError struct {
	Message string
}

func (e *SelectionMismatchError) Error() string { return e.Message }

func (e *SelectionMismatchError) Unwrap() error { return ErrSelectionMismatch }

// OrphanedUploadError reports blobs that were stored remotely but never
// referenced from a record because the record write failed.
type OrphanedUploadError struct {
	FolderIDs []string
	Err       error
}

func (e *OrphanedUploadError) Error() string {
	return fmt.Sprintf("record write failed, uploads %s left unreferenced: %v",
		strings.Join(e.FolderIDs, ","), e.Err)
}

func (e *OrphanedUploadError) Unwrap() []error { return []error{ErrOrphanedUpload, e.Err} }

// TransportError wraps a failed network call with the step that issued it.
func TransportError(step string, err error) error {
	return fmt.Errorf("%s: %w: %w", step, ErrTransport, err)
}
