package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so wrapped
// sentinels still compare equal through errors.Is.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidRole           = NewDomainError(ErrCodeValidation, "invalid role")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery            = NewDomainError(ErrCodeValidation, "query is empty after sanitization")
	ErrInvalidLimit          = NewDomainError(ErrCodeValidation, "limit must be at least 1")
	ErrReservedProjectName   = NewDomainError(ErrCodeValidation, "project name is reserved")
	ErrEmptyDocument         = NewDomainError(ErrCodeValidation, "document has no content")
)

// Not found errors
var (
	ErrTenantNotFound   = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrProjectNotFound  = NewDomainError(ErrCodeNotFound, "project not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrMemberNotFound   = NewDomainError(ErrCodeNotFound, "tenant member not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrProjectAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "project already exists")
)

// Authorization errors
var (
	ErrUnauthenticated = NewDomainError(ErrCodeUnauthorized, "authentication required")
	ErrInvalidToken    = NewDomainError(ErrCodeUnauthorized, "invalid token")
	ErrAccessDenied    = NewDomainError(ErrCodeForbidden, "access denied")
)

// Operation errors
var (
	ErrInvalidTransition   = NewDomainError(ErrCodeInvalidOperation, "invalid document status transition")
	ErrCorrelationMismatch = NewDomainError(ErrCodeInvalidOperation, "parsed result does not match claimed document")
	ErrGatewayUnavailable  = NewDomainError(ErrCodeUnavailable, "upstream gateway unavailable")
)

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
