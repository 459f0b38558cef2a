package core

import (
	"errors"
	"fmt"
	"time"
)

// Error codes shared across services and the HTTP layer.
const (
	CodeAuth             = "AUTH_ERROR"
	CodeFetch            = "FETCH_ERROR"
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeRateLimited      = "RATE_LIMITED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// ServiceError is the structured error carried across service
// boundaries. Recoverable errors can be retried or served from a
// fallback; non-recoverable ones must be surfaced to the caller.
type ServiceError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Context     map[string]any `json:"context,omitempty"`
	Recoverable bool           `json:"recoverable"`
	Timestamp   time.Time      `json:"timestamp"`
	cause       error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// WithContext attaches a key to the error's context map and returns the
// error for chaining.
func (e *ServiceError) WithContext(key string, value any) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func newServiceError(code, message string, recoverable bool, cause error) *ServiceError {
	return &ServiceError{
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
		Timestamp:   time.Now().UTC(),
		cause:       cause,
	}
}

func NewAuthError(message string) *ServiceError {
	return newServiceError(CodeAuth, message, false, nil)
}

func NewFetchError(message string, cause error) *ServiceError {
	return newServiceError(CodeFetch, message, true, cause)
}

// NewQuotaError reports an exhausted prediction quota along with when
// the quota resets.
func NewQuotaError(current, max int, resetDate time.Time) *ServiceError {
	e := newServiceError(CodeQuotaExceeded, "prediction limit reached for current period", false, nil)
	e.WithContext("current_usage", current)
	e.WithContext("max_usage", max)
	e.WithContext("reset_date", resetDate.Format(time.RFC3339))
	return e
}

// NewInsufficientDataError reports that a user's history is too short
// to forecast from.
func NewInsufficientDataError(have, need int) *ServiceError {
	e := newServiceError(CodeInsufficientData, "not enough transaction history to generate a forecast", false, nil)
	e.WithContext("transaction_count", have)
	e.WithContext("minimum_required", need)
	return e
}

// NewRateLimitedError reports an upstream 429 with the advertised
// retry-after interval.
func NewRateLimitedError(retryAfter time.Duration, cause error) *ServiceError {
	e := newServiceError(CodeRateLimited, "upstream service rate limited the request", true, cause)
	e.WithContext("retry_after_seconds", int(retryAfter.Seconds()))
	return e
}

func NewValidationError(message string, cause error) *ServiceError {
	return newServiceError(CodeValidation, message, false, cause)
}

func NewNotFoundError(resource, id string) *ServiceError {
	e := newServiceError(CodeNotFound, resource+" not found", false, nil)
	e.WithContext("id", id)
	return e
}

func NewInternalError(message string, cause error) *ServiceError {
	return newServiceError(CodeInternal, message, false, cause)
}

// AsServiceError unwraps err to a *ServiceError, or wraps it as an
// internal error when it is not one.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return NewInternalError("unexpected error", err)
}

// IsCode reports whether err carries the given service error code.
func IsCode(err error, code string) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}
