package errors

import (
	"errors"
	"fmt"
)

// PDFError is the typed error surfaced by the renewal core. The Type decides
// whether a request aborts or degrades to a best-effort result.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"` // 1-based, 0 when not page specific
	Recoverable bool      `json:"recoverable"`
	Err         error     `json:"-"`
}

// ErrorType categorises failures of the renewal pipeline
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeMalformedDocument
	ErrorTypeEmptyDocument
	ErrorTypeNotFound
	ErrorTypeInvalidSplitIndex
	ErrorTypeOverlayFailure
	ErrorTypeInvalidInput
	ErrorTypeIOFailure
)

// Sentinels for errors.Is; a *PDFError matches the sentinel of its Type.
var (
	ErrMalformedDocument = &PDFError{Type: ErrorTypeMalformedDocument, Message: "malformed document"}
	ErrEmptyDocument     = &PDFError{Type: ErrorTypeEmptyDocument, Message: "document has no pages"}
	ErrNotFound          = &PDFError{Type: ErrorTypeNotFound, Message: "text not found", Recoverable: true}
	ErrInvalidSplitIndex = &PDFError{Type: ErrorTypeInvalidSplitIndex, Message: "invalid split index"}
	ErrOverlayFailure    = &PDFError{Type: ErrorTypeOverlayFailure, Message: "overlay failed", Recoverable: true}
	ErrInvalidInput      = &PDFError{Type: ErrorTypeInvalidInput, Message: "invalid input"}
	ErrIOFailure         = &PDFError{Type: ErrorTypeIOFailure, Message: "i/o failure"}
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.PageNumber > 0 {
		msg += fmt.Sprintf(" (page %d)", e.PageNumber)
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *PDFError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a PDFError of the same type
func (e *PDFError) Is(target error) bool {
	var t *PDFError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeMalformedDocument:
		return "MALFORMED_DOCUMENT"
	case ErrorTypeEmptyDocument:
		return "EMPTY_DOCUMENT"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeInvalidSplitIndex:
		return "INVALID_SPLIT_INDEX"
	case ErrorTypeOverlayFailure:
		return "OVERLAY_FAILURE"
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	case ErrorTypeIOFailure:
		return "IO_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether the pipeline can continue with a degraded
// result. Structural errors abort the request; heuristic ones do not.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeNotFound, ErrorTypeOverlayFailure:
		return true
	default:
		return false
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
	}
}

// WrapError wraps err as a PDFError of the given type
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Err:         err,
	}
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithPage adds the 1-based page number to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// IsRecoverable reports whether err is a recoverable PDFError
func IsRecoverable(err error) bool {
	var pe *PDFError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}
	return false
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var pe *PDFError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeUnknown
}
