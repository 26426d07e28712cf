// Package apperrors defines the error taxonomy shared across the engine.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a missing or malformed required field.
// Validation errors are surfaced directly to the caller and are never
// retried against AI providers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

// NewValidation creates a ValidationError for a field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ProviderFailure reports a single failed provider attempt. The orchestrator
// recovers locally by moving to the next ranked provider; callers outside the
// orchestrator normally never see this type.
type ProviderFailure struct {
	Provider  string
	Model     string
	Operation string
	Cause     error
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("provider %s (%s) failed for operation %q: %v",
		e.Provider, e.Model, e.Operation, e.Cause)
}

func (e *ProviderFailure) Unwrap() error {
	return e.Cause
}

// OrchestrationExhausted reports that every ranked provider for an operation
// failed. The workflow controller recovers by substituting fallback content.
type OrchestrationExhausted struct {
	Operation string
	Attempts  int
	LastErr   error
}

func (e *OrchestrationExhausted) Error() string {
	return fmt.Sprintf("all %d providers exhausted for operation %q: %v",
		e.Attempts, e.Operation, e.LastErr)
}

func (e *OrchestrationExhausted) Unwrap() error {
	return e.LastErr
}

// StageInvariantViolation reports an attempted transition outside the allowed
// stage graph. The project state is left unchanged.
type StageInvariantViolation struct {
	ProjectID string
	FromStage int
	Action    string
	Message   string
}

func (e *StageInvariantViolation) Error() string {
	return fmt.Sprintf("stage invariant violated for project %s (stage %d, action %q): %s",
		e.ProjectID, e.FromStage, e.Action, e.Message)
}

// PersistenceError reports a failed durable write or read. Fatal for the
// current request; the caller must not have been told the operation succeeded.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NewPersistence wraps a store error, preserving the underlying cause.
func NewPersistence(op string, cause error) *PersistenceError {
	return &PersistenceError{Op: op, Cause: cause}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStageInvariant reports whether err is (or wraps) a StageInvariantViolation.
func IsStageInvariant(err error) bool {
	var se *StageInvariantViolation
	return errors.As(err, &se)
}

// IsExhausted reports whether err is (or wraps) an OrchestrationExhausted.
func IsExhausted(err error) bool {
	var oe *OrchestrationExhausted
	return errors.As(err, &oe)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
