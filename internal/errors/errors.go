package errors

import (
	"fmt"
	"net/http"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`

	// RetryAfterMs is set for COOLDOWN_ACTIVE and RATE_LIMITED rejections
	// so clients know when to come back.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return &APIError{
		Code:    ErrUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return &APIError{
		Code:    ErrForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// Conflict creates a CONFLICT error
func Conflict(resource string) *APIError {
	return &APIError{
		Code:    ErrConflict,
		Message: fmt.Sprintf("%s already exists or is in an invalid state", resource),
		Status:  http.StatusConflict,
	}
}

// ValidationError creates a VALIDATION_ERROR
func ValidationError(field, message string) *APIError {
	return &APIError{
		Code:    ErrValidation,
		Message: message,
		Field:   field,
		Status:  http.StatusUnprocessableEntity,
	}
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return &APIError{
		Code:    ErrBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return &APIError{
		Code:    ErrInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// RateLimited creates a RATE_LIMITED error with a retry hint
func RateLimited(retryAfterMs int64) *APIError {
	return &APIError{
		Code:         ErrRateLimited,
		Message:      "rate limit exceeded",
		Status:       http.StatusTooManyRequests,
		RetryAfterMs: retryAfterMs,
	}
}

// InvalidContent creates an INVALID_CONTENT rejection
func InvalidContent(message string) *APIError {
	return &APIError{
		Code:    ErrInvalidContent,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// ContainsLink creates a CONTAINS_LINK rejection
func ContainsLink() *APIError {
	return &APIError{
		Code:    ErrContainsLink,
		Message: "comments cannot contain links",
		Status:  http.StatusBadRequest,
	}
}

// CooldownActive creates a COOLDOWN_ACTIVE rejection with the remaining wait
func CooldownActive(remainingMs int64) *APIError {
	return &APIError{
		Code:         ErrCooldownActive,
		Message:      "please wait before posting again",
		Status:       http.StatusTooManyRequests,
		RetryAfterMs: remainingMs,
	}
}

// Banned creates a BANNED rejection. The message is deliberately generic;
// the real reason stays server-side.
func Banned() *APIError {
	return &APIError{
		Code:    ErrBanned,
		Message: "unable to post. Your account has been restricted.",
		Status:  http.StatusForbidden,
	}
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}
