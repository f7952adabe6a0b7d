package domain

import (
	"errors"
	"fmt"
)

// Error codes carried by DomainError
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeParseError        = "PARSE_ERROR"
	ErrCodeLinkError         = "LINK_ERROR"
	ErrCodeConfigError       = "CONFIG_ERROR"
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// Soft failures of a single link run. A run that ends with one of these
// changes no files.
var (
	// ErrInitializerNotFound means no `new <Ctor>(...)` matched the constructor name
	ErrInitializerNotFound = errors.New("initializer not found")

	// ErrLinking means an edit or an import could not be applied consistently
	ErrLinking = errors.New("linking error")

	// ErrUnsupportedValue means the property value could not be followed to
	// a list the policy allows growing
	ErrUnsupportedValue = errors.New("property value cannot be extended")

	// ErrPartialLink means the reference and its import were not both added
	ErrPartialLink = errors.New("reference and import were not both added")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, "file not found: "+path, cause)
}

// NewParseError creates a parse error
func NewParseError(file string, cause error) error {
	return NewDomainError(ErrCodeParseError, "failed to parse "+file, cause)
}

// NewLinkError creates a linking error
func NewLinkError(message string, cause error) error {
	return NewDomainError(ErrCodeLinkError, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, "unsupported format: "+format, nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// IsSoftFailure reports whether err is one of the link-run soft failures
func IsSoftFailure(err error) bool {
	return errors.Is(err, ErrInitializerNotFound) ||
		errors.Is(err, ErrLinking) ||
		errors.Is(err, ErrUnsupportedValue) ||
		errors.Is(err, ErrPartialLink)
}
