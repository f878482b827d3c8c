package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// AppError is the structured error returned by procspec's outer layers.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// LaunchFailed wraps an error returned while creating a process. A missing
// or non-executable program is not retryable.
func LaunchFailed(program string, cause error) *AppError {
	e := New(ErrCodeLaunchFailed, fmt.Sprintf("failed to launch %s", program)).
		WithDetail("program", program).
		WithCause(cause)
	if stderrors.Is(cause, exec.ErrNotFound) ||
		stderrors.Is(cause, fs.ErrNotExist) ||
		stderrors.Is(cause, fs.ErrPermission) {
		e.Retryable = false
	}
	return e
}

// WaitFailed wraps an error returned while waiting on a launched process or
// reading its output.
func WaitFailed(program string, pid int, cause error) *AppError {
	return New(ErrCodeWaitFailed, fmt.Sprintf("failed waiting on %s", program)).
		WithDetail("program", program).
		WithDetail("pid", pid).
		WithCause(cause)
}

// Canceled reports a process that was killed because its context ended.
func Canceled(program string, pid int, cause error) *AppError {
	return New(ErrCodeCanceled, fmt.Sprintf("%s was killed: context done", program)).
		WithDetail("program", program).
		WithDetail("pid", pid).
		WithCause(cause)
}

// InvalidSpec reports a spec document that could not be decoded.
func InvalidSpec(source string, cause error) *AppError {
	return New(ErrCodeInvalidSpec, fmt.Sprintf("invalid spec document %s", source)).
		WithDetail("source", source).
		WithCause(cause)
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("the requested %s was not found", resource)).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Validation creates a new AppError for configuration that failed validation.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
