package utils

import (
	"errors"
	"fmt"
)

// Custom error types for better error categorization and handling

// Authentication errors
var (
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidToken  = errors.New("invalid or malformed token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Data Processing errors
var (
	ErrInvalidDataFormat   = errors.New("invalid data format")
	ErrDataUnmarshalFailed = errors.New("failed to unmarshal data")
	ErrValidationFailed    = errors.New("data validation failed")
)

// Database errors
var (
	ErrDatabaseNotInit    = errors.New("database not initialized")
	ErrDatabaseConnection = errors.New("database connection error")
	ErrQueryFailed        = errors.New("database query failed")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypeData       ErrorType = "data_processing"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// CategorizedError wraps an error with additional context and categorization
type CategorizedError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
}

func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

func (e *CategorizedError) Is(target error) bool {
	if target == nil {
		return false
	}

	if categorizedTarget, ok := target.(*CategorizedError); ok {
		return e.Type == categorizedTarget.Type && e.Code == categorizedTarget.Code
	}

	return errors.Is(e.Cause, target)
}

// NewCategorizedError creates a new categorized error
func NewCategorizedError(errorType ErrorType, code, message string, cause error) *CategorizedError {
	return &CategorizedError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(code, message string, cause error) *CategorizedError {
	return NewCategorizedError(ErrorTypeAuth, code, message, cause)
}

// NewDataError creates a data processing error
func NewDataError(code, message string, cause error) *CategorizedError {
	return NewCategorizedError(ErrorTypeData, code, message, cause)
}

// NewDatabaseError creates a database error. Failed store reads are wrapped
// with this so handlers can map them to a server-fault response.
func NewDatabaseError(code, message string, cause error) *CategorizedError {
	return NewCategorizedError(ErrorTypeDatabase, code, message, cause)
}

// NewValidationError creates a validation error. Raised before any I/O when
// the caller supplied insufficient or malformed request parameters.
func NewValidationError(code, message string, cause error) *CategorizedError {
	return NewCategorizedError(ErrorTypeValidation, code, message, cause)
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	var categorizedErr *CategorizedError
	return errors.As(err, &categorizedErr) && categorizedErr.Type == ErrorTypeAuth
}

// IsValidationError checks if error is validation related
func IsValidationError(err error) bool {
	var categorizedErr *CategorizedError
	return errors.As(err, &categorizedErr) && categorizedErr.Type == ErrorTypeValidation
}

// IsDatabaseError checks if error is database related
func IsDatabaseError(err error) bool {
	var categorizedErr *CategorizedError
	return errors.As(err, &categorizedErr) && categorizedErr.Type == ErrorTypeDatabase
}

// GetErrorCode extracts error code from categorized error
func GetErrorCode(err error) string {
	var categorizedErr *CategorizedError
	if errors.As(err, &categorizedErr) {
		return categorizedErr.Code
	}
	return "unknown"
}

// GetErrorMessage extracts the human-readable message from a categorized
// error, falling back to Error() for plain errors.
func GetErrorMessage(err error) string {
	var categorizedErr *CategorizedError
	if errors.As(err, &categorizedErr) {
		return categorizedErr.Message
	}
	return err.Error()
}

// WrapError wraps an existing error with categorization
func WrapError(err error, errorType ErrorType, code, message string) *CategorizedError {
	if err == nil {
		return nil
	}
	return NewCategorizedError(errorType, code, message, err)
}
