package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal      = "INTERNAL_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeConflict      = "CONFLICT"
	CodeRateLimited   = "RATE_LIMITED"
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnprocessable = "UNPROCESSABLE_ENTITY"

	// Turn-processing codes. These map one-to-one onto the conversational
	// failure modes the supervisor and gateway have to handle.
	CodeLowConfidence     = "CLASSIFICATION_LOW_CONFIDENCE"
	CodeSlotExtraction    = "SLOT_EXTRACTION_FAILED"
	CodeMemoryUnavailable = "MEMORY_UNAVAILABLE"
	CodeSearchTimeout     = "SEARCH_TIMEOUT"
	CodeSearchCircuitOpen = "SEARCH_CIRCUIT_OPEN"
	CodeContractViolation = "CONTRACT_VIOLATION"
	CodeTransportWrite    = "TRANSPORT_WRITE_FAILED"
)

// AppError represents an application error with context
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithError wraps an underlying error
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Internal creates an internal server error
func Internal(message string) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// RateLimited creates a rate limited error
func RateLimited() *AppError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

// Unprocessable creates an unprocessable entity error
func Unprocessable(message string) *AppError {
	return New(CodeUnprocessable, message, http.StatusUnprocessableEntity)
}

// LowConfidence creates a classification-below-floor error. Recoverable: the
// supervisor answers the turn with a clarification question.
func LowConfidence(message string) *AppError {
	return New(CodeLowConfidence, message, http.StatusOK)
}

// SlotExtraction creates a slot extraction error. Recoverable: the supervisor
// re-asks the same slot with a rephrased prompt.
func SlotExtraction(slot string) *AppError {
	return New(CodeSlotExtraction, fmt.Sprintf("failed to extract slot %s", slot), http.StatusOK)
}

// MemoryUnavailable creates a memory source error. Absorbed: the turn proceeds
// with partial context.
func MemoryUnavailable(source string) *AppError {
	return New(CodeMemoryUnavailable, fmt.Sprintf("memory source %s unavailable", source), http.StatusServiceUnavailable)
}

// SearchTimeout creates a listing search timeout error
func SearchTimeout() *AppError {
	return New(CodeSearchTimeout, "listing search timed out", http.StatusGatewayTimeout)
}

// SearchCircuitOpen creates an error for calls rejected by the open breaker
func SearchCircuitOpen() *AppError {
	return New(CodeSearchCircuitOpen, "listing search circuit is open", http.StatusServiceUnavailable)
}

// ContractViolation creates an agent contract error. Fatal for the turn: the
// response is never surfaced to the caller as if it were valid.
func ContractViolation(message string) *AppError {
	return New(CodeContractViolation, message, http.StatusInternalServerError)
}

// TransportWrite creates a delivery failure error
func TransportWrite(message string) *AppError {
	return New(CodeTransportWrite, message, http.StatusInternalServerError)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error if present
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// hasCode reports whether err carries the given application code
func hasCode(err error, code string) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return hasCode(err, CodeConflict)
}

// IsLowConfidence checks if the error is a low-confidence classification error
func IsLowConfidence(err error) bool {
	return hasCode(err, CodeLowConfidence)
}

// IsMemoryUnavailable checks if the error is a memory source error
func IsMemoryUnavailable(err error) bool {
	return hasCode(err, CodeMemoryUnavailable)
}

// IsSearchDegraded reports whether the error is a search timeout or an open
// breaker. Both degrade to the same user-facing fallback reply.
func IsSearchDegraded(err error) bool {
	return hasCode(err, CodeSearchTimeout) || hasCode(err, CodeSearchCircuitOpen)
}

// IsContractViolation checks if the error is an agent contract violation
func IsContractViolation(err error) bool {
	return hasCode(err, CodeContractViolation)
}
