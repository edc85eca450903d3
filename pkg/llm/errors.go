package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// TransientError is a failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError is a failure that must not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

func NewFatalError(err error) error {
	return &FatalError{err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// classifyAPIError maps a Gemini API failure onto the retry classes. Rate limits
// and server errors retry; auth and request errors do not.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewFatalError(err)
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		// no status: network level failure
		return NewTransientError(fmt.Errorf("gemini request failed: %w", err))
	}
	return classifyStatus(code, err)
}

func classifyStatus(code int, err error) error {
	wrapped := fmt.Errorf("gemini API error (status %d): %w", code, err)
	switch {
	case code == http.StatusTooManyRequests:
		return NewTransientError(wrapped)
	case code >= 500:
		return NewTransientError(wrapped)
	default:
		return NewFatalError(wrapped)
	}
}
