package dto

import (
	"errors"
	"net/http"

	"github.com/erp/procurement/internal/domain/shared"
)

// Transport-level error codes that never originate in the domain
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Codes missing
// from the table fall back to the status of their error kind.
var ErrorCodeHTTPStatus = map[string]int{
	// Malformed input -> 400 Bad Request
	shared.CodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest:     http.StatusBadRequest,

	// Resource errors
	shared.CodeNotFound:               http.StatusNotFound,
	ErrCodeRouteNotFound:              http.StatusNotFound,
	shared.CodeInvalidTransition:      http.StatusConflict,
	shared.CodeConcurrentModification: http.StatusConflict,
	shared.CodeIdempotencyKeyReused:   http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	shared.CodeEmptyOrder:       http.StatusUnprocessableEntity,
	shared.CodeMissingSupplier:  http.StatusUnprocessableEntity,
	shared.CodeInactiveSupplier: http.StatusUnprocessableEntity,
	shared.CodeInvalidQuantity:  http.StatusUnprocessableEntity,
	shared.CodeInvalidDiscount:  http.StatusUnprocessableEntity,
	shared.CodeInvalidPrice:     http.StatusUnprocessableEntity,
	shared.CodeInvalidTaxRate:   http.StatusUnprocessableEntity,
	shared.CodeInvalidStatus:    http.StatusUnprocessableEntity,
	shared.CodeDuplicateVariant: http.StatusUnprocessableEntity,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	shared.CodeInternal:    http.StatusInternalServerError,
}

var kindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation: http.StatusUnprocessableEntity,
	shared.KindConflict:   http.StatusConflict,
	shared.KindNotFound:   http.StatusNotFound,
	shared.KindInternal:   http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForError picks the HTTP status for err, preferring the code table
// and falling back to the error kind
func StatusForError(err error) int {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	if status, ok := ErrorCodeHTTPStatus[domainErr.Code]; ok {
		return status
	}
	if status, ok := kindHTTPStatus[domainErr.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
