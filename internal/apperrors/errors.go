package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Returned when a transaction is already in a terminal status and the
	// requested transition must be a no-op
	ErrTransactionFinal = errors.New("transaction already finalized")

	ErrProcessorUnavailable = errors.New("payment processor unavailable")

	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// More than one local transaction mapped to the same external id
	ErrDataIntegrity = errors.New("duplicate external transaction id mapping")
)

// ValidationError carries every violation found in a request, not only the
// first one
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Violations, "; ")
}

func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// ProcessorError is a malformed-request error reported by the payment
// processor (invalid phone number, invalid email and so on). It is produced
// with a stable code at the point of failure and classified with errors.As,
// never reconstructed later from message text.
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error (code %s): %s", e.Code, e.Message)
}
