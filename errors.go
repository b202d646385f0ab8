package aquatrack

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("aquatrack: not found")
	ErrAlreadyExists = errors.New("aquatrack: already exists")
	ErrInvalidInput  = errors.New("aquatrack: invalid input")
	ErrUnauthorized  = errors.New("aquatrack: unauthorized")
	ErrForbidden     = errors.New("aquatrack: forbidden")

	// Customer errors
	ErrCustomerNotFound       = errors.New("aquatrack: customer not found")
	ErrDuplicateAccountNumber = errors.New("aquatrack: account number already in use")
	ErrDuplicateMeterNumber   = errors.New("aquatrack: meter number already in use")

	// Bill errors
	ErrBillNotFound    = errors.New("aquatrack: bill not found")
	ErrBillNotApproved = errors.New("aquatrack: bill not approved")
	ErrBillAlreadyPaid = errors.New("aquatrack: bill already paid")

	// Reading errors
	ErrReadingNotMonotonic = errors.New("aquatrack: reading not greater than last reading")

	// Account errors
	ErrAccountNotFound    = errors.New("aquatrack: account not found")
	ErrDuplicateEmail     = errors.New("aquatrack: email already registered")
	ErrInvalidCredentials = errors.New("aquatrack: invalid credentials")
	ErrWeakPassword       = errors.New("aquatrack: password too short")

	// Payment errors
	ErrPaymentDeclined = errors.New("aquatrack: payment declined")

	// Store errors
	ErrStoreNotReady     = errors.New("aquatrack: store not ready")
	ErrStoreClosed       = errors.New("aquatrack: store is closed")
	ErrTransactionFailed = errors.New("aquatrack: transaction failed")
	ErrMigrationFailed   = errors.New("aquatrack: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("aquatrack: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "aquatrack: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("aquatrack: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrBillNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsConflict returns true if the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrDuplicateAccountNumber) ||
		errors.Is(err, ErrDuplicateMeterNumber) ||
		errors.Is(err, ErrDuplicateEmail)
}

// IsValidation returns true if the error carries field-level validation detail.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
