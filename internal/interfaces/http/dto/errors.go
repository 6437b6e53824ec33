package dto

import "net/http"

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeValidation is used when request body validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes. Codes not
// listed here fall back to 500 so an unmapped failure never masquerades as a
// client error.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeValidation:   http.StatusBadRequest,

	// Validation of identifiers and amounts
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_ACCOUNT":         http.StatusBadRequest,
	"INVALID_SESSION":         http.StatusBadRequest,
	"INVALID_QUESTION_ANSWER": http.StatusBadRequest,
	"INVALID_INVOICE":         http.StatusBadRequest,
	"INVALID_AMOUNT":          http.StatusBadRequest,
	"INVALID_PERIOD":          http.StatusBadRequest,

	// Resource lookups
	"SESSION_NOT_FOUND": http.StatusNotFound,

	// Conflicts
	"ALREADY_EXISTS":       http.StatusConflict,
	"INVOICE_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Business rules
	"INVALID_STATE":         http.StatusUnprocessableEntity,
	"SESSION_NOT_EVALUATED": http.StatusUnprocessableEntity,
	"NOT_DUE":               http.StatusUnprocessableEntity,
	"INVOICE_REASSIGNMENT":  http.StatusUnprocessableEntity,

	// Credit ceiling exhausted: the caller must upgrade the plan before
	// starting more costed work
	"UPGRADE_REQUIRED": http.StatusPaymentRequired,

	"FORBIDDEN": http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
