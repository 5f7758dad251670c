package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across modules. Handlers translate these into
// HTTP problem responses via platform/httpx.
var (
	// ErrNotFound indicates a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique-key collision.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidState indicates an illegal lifecycle transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInsufficientStock indicates a stock movement would go negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConfiguration indicates required chart-of-accounts wiring is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrPartialFailure indicates a multi-step operation failed after partial
	// application and compensation could not restore the prior state.
	ErrPartialFailure = errors.New("partial failure")
)

// ValidationError carries a caller-facing description of invalid input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names the entity that could not be resolved.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidStateError describes a rejected lifecycle transition.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// InvalidStatef builds an InvalidStateError.
func InvalidStatef(format string, args ...any) error {
	return &InvalidStateError{Msg: fmt.Sprintf(format, args...)}
}

// DuplicateError names the colliding key.
type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Entity, e.Key)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// InsufficientStockError reports the exact shortfall so callers can surface it.
type InsufficientStockError struct {
	ItemName  string
	Available float64
	Required  float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %.2f, required %.2f, short %.2f",
		e.ItemName, e.Available, e.Required, e.Shortfall())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Shortfall returns the missing quantity.
func (e *InsufficientStockError) Shortfall() float64 {
	if e.Required <= e.Available {
		return 0
	}
	return e.Required - e.Available
}

// ConfigurationError indicates a required account role has no active account.
// Automatic posting must fail outright rather than default silently.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configurationf builds a ConfigurationError.
func Configurationf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// PartialFailureError reports a multi-step operation whose compensating
// action also failed. Operators must reconcile manually.
type PartialFailureError struct {
	Op           string
	Cause        error
	Compensation error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed (%v) and compensation failed (%v); manual reconciliation required",
		e.Op, e.Cause, e.Compensation)
}

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }

func (e *PartialFailureError) Unwrap() error { return e.Cause }
