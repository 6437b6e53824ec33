package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// ErrUpgradeRequired is returned by the admission gate when an account has
	// exhausted its credit ceiling. Callers must surface this as a
	// machine-readable reason code, never as a generic failure.
	ErrUpgradeRequired = NewDomainError("UPGRADE_REQUIRED", "Credit ceiling exhausted, plan upgrade required")

	// ErrSessionNotEvaluated is returned when charging is attempted for a
	// session whose evaluation has not completed yet.
	ErrSessionNotEvaluated = NewDomainError("SESSION_NOT_EVALUATED", "Evaluation session has not been evaluated yet")
)
