// Package types holds the error and result types shared by the pipeline,
// configuration and command-line layers.
package types

import "time"

// ErrorCode classifies a failed run.
type ErrorCode string

const (
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrExtract      ErrorCode = "EXTRACT_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
	ErrRender       ErrorCode = "RENDER_ERROR"
	ErrOutput       ErrorCode = "OUTPUT_ERROR"
	ErrCancelled    ErrorCode = "CANCELLED"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError is a failure surfaced to the user.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// OutputKind tells which artifact a run produced.
type OutputKind string

const (
	OutputPDF  OutputKind = "pdf"
	OutputText OutputKind = "text"
)

// Result is the outcome of translating one document.
type Result struct {
	// Kind is OutputText when the PDF could not be built and the translated
	// text is delivered instead.
	Kind     OutputKind
	Data     []byte
	FileName string

	Pages    int
	OCRPages int
	Chunks   int

	SourceText     string
	TranslatedText string

	// RenderErr is the render failure that caused the text fallback.
	RenderErr error
	Duration  time.Duration
}
