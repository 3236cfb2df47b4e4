// Package translator splits source text into chunks and translates them in
// order through a pluggable backend, retrying failed chunks with exponential
// backoff.
package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Translator translates text between two language codes.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Func adapts a function to the Translator interface.
type Func func(ctx context.Context, text, source, target string) (string, error)

func (f Func) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// APIError is a failed call to a translation service.
type APIError struct {
	Backend    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	msg := e.Backend + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Temporary reports whether retrying the call may succeed. Authentication
// failures and malformed requests will not.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	}
	return true
}

// IsRetryable reports whether a failed attempt should be retried. Any error
// is retried unless it is a cancellation or an APIError that is not
// temporary.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// TranslationError reports a chunk that could not be translated.
type TranslationError struct {
	// Index is the 0-based chunk index.
	Index    int
	Attempts int
	Cause    error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed at chunk %d after %d attempt(s): %v", e.Index+1, e.Attempts, e.Cause)
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// IsTranslationFailure reports whether err is a *TranslationError.
func IsTranslationFailure(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}
