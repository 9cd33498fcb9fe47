package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors, detected at init/params/prepare time.
const (
	// ErrCodeInvalidArgument indicates a rejected argument (unknown task type, bad id).
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeConfiguration indicates a generic configuration error.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeFormatMismatch indicates adjacent components negotiated different formats.
	ErrCodeFormatMismatch ErrorCode = "FORMAT_MISMATCH"
	// ErrCodeInsufficientBuffer indicates a buffer cannot hold one period.
	ErrCodeInsufficientBuffer ErrorCode = "INSUFFICIENT_BUFFER"
	// ErrCodeInvalidState indicates an operation not allowed in the current state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeAlreadySet indicates the object is already in the requested state.
	// It carries a positive status and callers usually treat it as success.
	ErrCodeAlreadySet ErrorCode = "ALREADY_SET"
)

// Resource errors.
const (
	// ErrCodeNotFound indicates the referenced object does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the object id is taken.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeAllocationFailed indicates an allocation could not be satisfied.
	ErrCodeAllocationFailed ErrorCode = "ALLOCATION_FAILED"
	// ErrCodeBusy indicates a full mailbox or a busy resource.
	ErrCodeBusy ErrorCode = "BUSY"
	// ErrCodeUnavailable indicates the target core or service is not running.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Data path errors.
const (
	// ErrCodeDataError indicates a malformed stream seen by a component copy.
	ErrCodeDataError ErrorCode = "DATA_ERROR"
	// ErrCodeXrun indicates the pipeline is in an under/overrun condition.
	ErrCodeXrun ErrorCode = "XRUN"
)

// Fatal and internal errors.
const (
	// ErrCodeFatal indicates an unrecoverable fault such as a watchdog timeout.
	ErrCodeFatal ErrorCode = "FATAL"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeBusy:        true,
	ErrCodeUnavailable: true,
	ErrCodeTimeout:     true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// errno values used in IPC reply status codes.
const (
	errnoIO    = 5
	errnoAgain = 11
	errnoNoMem = 12
	errnoFault = 14
	errnoBusy  = 16
	errnoExist = 17
	errnoNoDev = 19
	errnoInval = 22
	errnoPipe  = 32
	errnoTime  = 62
)

var statusCodes = map[ErrorCode]int{
	ErrCodeInvalidArgument:    -errnoInval,
	ErrCodeConfiguration:      -errnoInval,
	ErrCodeFormatMismatch:     -errnoInval,
	ErrCodeInsufficientBuffer: -errnoInval,
	ErrCodeInvalidState:       -errnoInval,
	ErrCodeAlreadySet:         1,
	ErrCodeNotFound:           -errnoNoDev,
	ErrCodeAlreadyExists:      -errnoExist,
	ErrCodeAllocationFailed:   -errnoNoMem,
	ErrCodeBusy:               -errnoBusy,
	ErrCodeUnavailable:        -errnoAgain,
	ErrCodeTimeout:            -errnoTime,
	ErrCodeDataError:          -errnoIO,
	ErrCodeXrun:               -errnoPipe,
	ErrCodeFatal:              -errnoFault,
	ErrCodeInternal:           -errnoFault,
}

// StatusCode returns the negative IPC status for a code.
func StatusCode(code ErrorCode) int {
	if s, ok := statusCodes[code]; ok {
		return s
	}
	return -errnoFault
}
