package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Configuration Errors (CONFIG_*)
	ErrorCodeConfigMissing ErrorCode = "CONFIG_MISSING"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Notification Errors (NOTIFICATION_*)
	ErrorCodeDecodeFailed          ErrorCode = "DECODE_FAILED"
	ErrorCodeCorrelationMiss       ErrorCode = "CORRELATION_MISS"
	ErrorCodeDuplicateNotification ErrorCode = "DUPLICATE_NOTIFICATION"

	// Lookup Errors
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// Upstream Errors (bank page, SMTP relay)
	ErrorCodeUpstreamFailed ErrorCode = "UPSTREAM_FAILED"

	// Internal Errors (INTERNAL_*)
	ErrorCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// NewConfigError reports a required setting that is missing or blank.
// The key is part of the message so operators can fix it without reading code.
func NewConfigError(key string) *DomainError {
	return NewDomainError(ErrorCodeConfigMissing, fmt.Sprintf("missing required setting %q", key)).
		WithDetail("key", key)
}

// NewValidationError creates a VALIDATION_FAILED error
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrorCodeValidationFailed, message)
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// ConfigKey returns the setting named by a CONFIG_MISSING error
func ConfigKey(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Code == ErrorCodeConfigMissing {
		if key, ok := domainErr.Details["key"].(string); ok {
			return key
		}
	}
	return ""
}

// IsConfigError checks if an error is a missing configuration error
func IsConfigError(err error) bool {
	return IsDomainError(err, ErrorCodeConfigMissing)
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeNotFound || code == ErrorCodeCorrelationMiss
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField
}

// Structured error instances
var (
	ErrNotFound              = NewDomainError(ErrorCodeNotFound, "record not found")
	ErrTransactionNotFound   = NewDomainError(ErrorCodeCorrelationMiss, "transaction record not found")
	ErrDuplicateNotification = NewDomainError(ErrorCodeDuplicateNotification, "notification already processed")
	ErrSettlementNotPositive = NewDomainError(ErrorCodeValidationAmountInvalid, "settlement amount must be greater than zero")
	ErrInvoiceNumberRequired = NewDomainError(ErrorCodeValidationMissingField, "invoice number is required")
	ErrMerchantIDRequired    = NewDomainError(ErrorCodeValidationMissingField, "merchant id is required")
	ErrInternalError         = NewDomainError(ErrorCodeInternalError, "internal server error")
)
