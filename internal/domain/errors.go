package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeResource   ErrorType = "resource"
)

// NoPage marks an error that is not tied to a page index.
const NoPage = -1

// Sentinel causes, matched with errors.Is.
var (
	ErrEmptyInput         = errors.New("no files supplied")
	ErrIndexOutOfRange    = errors.New("page index out of range")
	ErrInvalidPermutation = errors.New("order is not a permutation of the current pages")
	ErrSessionClosed      = errors.New("editing session is closed")
	ErrSessionBusy        = errors.New("document already has an open editing session")
	ErrMissingFilename    = errors.New("file has content but no filename")
	ErrUnknownKind        = errors.New("unknown kind")
)

// DomainError represents a domain-specific error with enough context
// (page index or filename) to report to the end user.
type DomainError struct {
	Type     ErrorType
	Message  string
	Page     int
	Filename string
	Err      error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Filename != "" {
		msg = fmt.Sprintf("%s (file %q)", msg, e.Filename)
	}
	if e.Page != NoPage {
		msg = fmt.Sprintf("%s (page %d)", msg, e.Page)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithPage attaches a page index to the error.
func (e *DomainError) WithPage(page int) *DomainError {
	e.Page = page
	return e
}

// WithFile attaches the original filename to the error.
func (e *DomainError) WithFile(name string) *DomainError {
	e.Filename = name
	return e
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Page:    NoPage,
		Err:     err,
	}
}

// Common error constructors
func InputError(message string, err error) *DomainError {
	return NewError(ErrorTypeInput, message, err)
}

func ProcessingError(message string, err error) *DomainError {
	return NewError(ErrorTypeProcessing, message, err)
}

func ResourceError(message string, err error) *DomainError {
	return NewError(ErrorTypeResource, message, err)
}

// IndexError reports a page index outside [0, count).
func IndexError(page, count int) *DomainError {
	return InputError(fmt.Sprintf("page must be in [0, %d)", count), ErrIndexOutOfRange).WithPage(page)
}

// TypeOf returns the ErrorType of the first DomainError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

func IsInput(err error) bool      { return TypeOf(err) == ErrorTypeInput }
func IsProcessing(err error) bool { return TypeOf(err) == ErrorTypeProcessing }
func IsResource(err error) bool   { return TypeOf(err) == ErrorTypeResource }
