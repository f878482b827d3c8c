package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Process lifecycle errors
const (
	// ErrCodeLaunchFailed indicates the OS could not create the process.
	ErrCodeLaunchFailed ErrorCode = "LAUNCH_FAILED"
	// ErrCodeWaitFailed indicates waiting on the process or reading its
	// output failed after it was launched.
	ErrCodeWaitFailed ErrorCode = "WAIT_FAILED"
	// ErrCodeCanceled indicates the caller gave up on the process and it was
	// killed.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Spec document errors
const (
	// ErrCodeInvalidSpec indicates a spec document could not be decoded.
	ErrCodeInvalidSpec ErrorCode = "INVALID_SPEC"
	// ErrCodeNotFound indicates a named spec or file does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Configuration errors
const (
	// ErrCodeInvalidInput indicates configuration failed validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Launch failures are often transient (EAGAIN, EMFILE); decode and lookup
// failures are not.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeLaunchFailed: true,
	ErrCodeWaitFailed:   false,
	ErrCodeCanceled:     false,
	ErrCodeInvalidSpec:  false,
	ErrCodeNotFound:     false,
	ErrCodeInvalidInput: false,
	ErrCodeInternal:     false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
