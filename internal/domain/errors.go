package domain

import "fmt"

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeDocumentRead        ErrorType = "document_read"
	ErrorTypeUnknownProvider     ErrorType = "unknown_provider"
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"
	ErrorTypeEmptyResponse       ErrorType = "empty_response"
	ErrorTypeConversionFailed    ErrorType = "conversion_failed"
	ErrorTypeAPI                 ErrorType = "api"
	ErrorTypeConfig              ErrorType = "config"
	ErrorTypeIO                  ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same type. Sentinels carry
// no message, so errors.Is(err, ErrEmptyResponse) matches any empty-response error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok || t.Message != "" {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &DomainError{Type: ErrorTypeValidation}
	ErrDocumentRead        = &DomainError{Type: ErrorTypeDocumentRead}
	ErrUnknownProvider     = &DomainError{Type: ErrorTypeUnknownProvider}
	ErrProviderUnavailable = &DomainError{Type: ErrorTypeProviderUnavailable}
	ErrEmptyResponse       = &DomainError{Type: ErrorTypeEmptyResponse}
	ErrConversionFailed    = &DomainError{Type: ErrorTypeConversionFailed}
	ErrAPI                 = &DomainError{Type: ErrorTypeAPI}
	ErrConfig              = &DomainError{Type: ErrorTypeConfig}
	ErrIO                  = &DomainError{Type: ErrorTypeIO}
)

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func DocumentReadError(message string, err error) *DomainError {
	return NewError(ErrorTypeDocumentRead, message, err)
}

func UnknownProviderError(message string) *DomainError {
	return NewError(ErrorTypeUnknownProvider, message, nil)
}

func ProviderUnavailableError(message string, err error) *DomainError {
	return NewError(ErrorTypeProviderUnavailable, message, err)
}

func EmptyResponseError(message string) *DomainError {
	return NewError(ErrorTypeEmptyResponse, message, nil)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// ConversionFailedError identifies the chunk a conversion stopped at. It is
// returned as an error when the first chunk fails and there is no partial
// output to fall back on.
type ConversionFailedError struct {
	ChunkIndex int
	StartPage  int
	EndPage    int
	TotalPages int
	Err        error
}

func (e *ConversionFailedError) Error() string {
	return fmt.Sprintf("[%s] conversion stopped at chunk %d (pages %d-%d of %d): %v",
		ErrorTypeConversionFailed, e.ChunkIndex+1, e.StartPage, e.EndPage, e.TotalPages, e.Err)
}

func (e *ConversionFailedError) Unwrap() error {
	return e.Err
}

func (e *ConversionFailedError) Is(target error) bool {
	return target == ErrConversionFailed
}
