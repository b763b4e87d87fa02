package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrStateConflict     = errors.New("state conflict")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrStorage           = errors.New("storage failure")
	ErrDeliveryFailed    = errors.New("delivery failed")
	ErrRateLimited       = errors.New("rate limit exceeded")

	ErrExpired         = fmt.Errorf("%w: no pending purchase", ErrStateConflict)
	ErrMismatch        = fmt.Errorf("%w: pending purchase is for another asset", ErrStateConflict)
	ErrAlreadyReferred = fmt.Errorf("%w: user already referred", ErrStateConflict)
	ErrSelfReferral    = fmt.Errorf("%w: self referral", ErrStateConflict)
	ErrDuplicate       = fmt.Errorf("%w: duplicate", ErrStateConflict)
)

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientFundsError carries the balance observed when a debit was refused.
type InsufficientFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Balance, e.Required)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// StorageError wraps a driver error from the named operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// Storage wraps err as a StorageError unless it is nil or already classified.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classify(err) != ClassUnknown {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ErrorClass is the taxonomy bucket of an error.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassValidation
	ClassNotFound
	ClassInsufficientFunds
	ClassStateConflict
	ClassPermissionDenied
	ClassStorage
	ClassDelivery
	ClassRateLimited
)

// Classify maps err onto the error taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return ClassInsufficientFunds
	case errors.Is(err, ErrStateConflict):
		return ClassStateConflict
	case errors.Is(err, ErrPermissionDenied):
		return ClassPermissionDenied
	case errors.Is(err, ErrStorage):
		return ClassStorage
	case errors.Is(err, ErrDeliveryFailed):
		return ClassDelivery
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	}
	return ClassUnknown
}
