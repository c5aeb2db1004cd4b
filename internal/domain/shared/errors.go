package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers that need to decide
// whether to fix the input, re-read state or give up.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindConflict   ErrorKind = "CONFLICT"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindInternal   ErrorKind = "INTERNAL"
)

// Error codes raised by the procurement domain
const (
	CodeEmptyOrder             = "EMPTY_ORDER"
	CodeMissingSupplier        = "MISSING_SUPPLIER"
	CodeInactiveSupplier       = "INACTIVE_SUPPLIER"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInvalidDiscount        = "INVALID_DISCOUNT"
	CodeInvalidPrice           = "INVALID_PRICE"
	CodeInvalidTaxRate         = "INVALID_TAX_RATE"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeDuplicateVariant       = "DUPLICATE_VARIANT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeIdempotencyKeyReused   = "IDEMPOTENCY_KEY_REUSED"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

var codeKinds = map[string]ErrorKind{
	CodeEmptyOrder:             KindValidation,
	CodeMissingSupplier:        KindValidation,
	CodeInactiveSupplier:       KindValidation,
	CodeInvalidQuantity:        KindValidation,
	CodeInvalidDiscount:        KindValidation,
	CodeInvalidPrice:           KindValidation,
	CodeInvalidTaxRate:         KindValidation,
	CodeInvalidStatus:          KindValidation,
	CodeDuplicateVariant:       KindValidation,
	CodeValidation:             KindValidation,
	CodeInvalidTransition:      KindConflict,
	CodeConcurrentModification: KindConflict,
	CodeIdempotencyKeyReused:   KindConflict,
	CodeNotFound:               KindNotFound,
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	Err     error     `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) matches every not-found error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error. The kind is derived from the code.
func NewDomainError(code, message string) *DomainError {
	kind, ok := codeKinds[code]
	if !ok {
		kind = KindInternal
	}
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// NewValidationError creates a validation error with the given code
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewConflictError creates a state conflict error with the given code
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindConflict}
}

// NewNotFoundError creates a NOT_FOUND error naming the missing resource
func NewNotFoundError(resource string, id fmt.Stringer) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Kind:    KindNotFound,
	}
}

// WrapInternal wraps an unexpected infrastructure failure
func WrapInternal(message string, err error) *DomainError {
	return &DomainError{Code: CodeInternal, Message: message, Kind: KindInternal, Err: err}
}

// KindOf returns the kind of err, or KindInternal for non-domain errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Status transition not allowed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
)
