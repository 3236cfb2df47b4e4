// Package pdf turns PDF bytes into text and translated text back into a
// paginated PDF. Extraction falls back to OCR for image-only pages; rendering
// degrades from whole paragraphs to single sentences when markup is invalid.
package pdf

import (
	"errors"
	"fmt"
)

// PageText is the text obtained for one page.
type PageText struct {
	// Index is 1-based.
	Index     int
	Extracted string
	OCR       string
	UsedOCR   bool
}

// Text returns the extracted text if present, otherwise the OCR text.
func (p PageText) Text() string {
	if p.UsedOCR {
		return p.OCR
	}
	return p.Extracted
}

// PDFErrorCode classifies PDF failures.
type PDFErrorCode string

const (
	ErrPDFInvalid     PDFErrorCode = "PDF_INVALID"
	ErrPDFNoText      PDFErrorCode = "PDF_NO_TEXT"
	ErrExtractFailed  PDFErrorCode = "EXTRACT_FAILED"
	ErrOCRFailed      PDFErrorCode = "OCR_FAILED"
	ErrGenerateFailed PDFErrorCode = "GENERATE_FAILED"
	ErrCancelled      PDFErrorCode = "CANCELLED"
)

// PDFError is the error type of this package. Page is 1-based, zero when the
// error concerns the whole document.
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	msg := e.Message
	if e.Page > 0 {
		msg = fmt.Sprintf("page %d: %s", e.Page, msg)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPDFErrorWithDetails creates a new PDFError with details
func NewPDFErrorWithDetails(code PDFErrorCode, message, details string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// NewPDFErrorWithPage creates a new PDFError with page information
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Page:    page,
		Cause:   cause,
	}
}

// CodeOf returns the PDFErrorCode carried by err, or "" if there is none.
func CodeOf(err error) PDFErrorCode {
	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Code
	}
	return ""
}

// IsExtractionFailure reports whether err means no text could be obtained.
func IsExtractionFailure(err error) bool {
	switch CodeOf(err) {
	case ErrPDFInvalid, ErrPDFNoText, ErrExtractFailed:
		return true
	}
	return false
}

// IsRenderFailure reports whether err means the output document could not
// be built.
func IsRenderFailure(err error) bool {
	return CodeOf(err) == ErrGenerateFailed
}
