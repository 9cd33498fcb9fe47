package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
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

// Status returns the negative IPC reply status for the error.
func (e *AppError) Status() int { return StatusCode(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
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
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Configuration errors ---

// InvalidArgument creates an AppError for a rejected argument.
func InvalidArgument(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid argument: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates an AppError for struct validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Configuration creates an AppError for a configuration error.
func Configuration(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: reason,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// FormatMismatch creates an AppError for adjacent components negotiating different formats.
func FormatMismatch(producer, consumer uint32, want, got string) *AppError {
	return &AppError{
		Code:       ErrCodeFormatMismatch,
		Message:    fmt.Sprintf("format mismatch between component %d and %d: expected %s, got %s", producer, consumer, want, got),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"producer": producer, "consumer": consumer, "expected": want, "actual": got},
	}
}

// InsufficientBuffer creates an AppError for a buffer smaller than one period.
func InsufficientBuffer(bufferID uint32, size, need int) *AppError {
	return &AppError{
		Code:       ErrCodeInsufficientBuffer,
		Message:    fmt.Sprintf("buffer %d holds %d bytes, one period needs %d", bufferID, size, need),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"buffer": bufferID, "size": size, "need": need},
	}
}

// InvalidState creates an AppError for an operation not allowed in the current state.
func InvalidState(object, from, op string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidState,
		Message:    fmt.Sprintf("%s cannot %s from state %s", object, op, from),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"object": object, "state": from, "operation": op},
	}
}

// AlreadySet creates an AppError for a state change that is already in effect.
func AlreadySet(object, state string) *AppError {
	return &AppError{
		Code:       ErrCodeAlreadySet,
		Message:    fmt.Sprintf("%s already %s", object, state),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"object": object, "state": state},
	}
}

// --- Resource errors ---

// NotFound creates an AppError for an object that was not found.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %v not found", resource, id),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"resource": resource, "id": id},
	}
}

// AlreadyExists creates an AppError for a duplicate id.
func AlreadyExists(resource string, id any) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s %v already exists", resource, id),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"resource": resource, "id": id},
	}
}

// AllocationFailed creates an AppError for an allocation that could not be satisfied.
func AllocationFailed(what string, size int) *AppError {
	return &AppError{
		Code: ErrCodeAllocationFailed, Message: fmt.Sprintf("cannot allocate %s of %d bytes", what, size),
		HTTPStatus: http.StatusInsufficientStorage,
		Details:    map[string]any{"object": what, "size": size},
	}
}

// Busy creates a retryable AppError for a full mailbox or busy resource.
func Busy(resource string) *AppError {
	return &AppError{
		Code: ErrCodeBusy, Message: fmt.Sprintf("%s is busy", resource),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"resource": resource},
	}
}

// Unavailable creates a retryable AppError for a target that is not running.
func Unavailable(resource string) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: fmt.Sprintf("%s is unavailable", resource),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"resource": resource},
	}
}

// Timeout creates a retryable AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// --- Data path errors ---

// DataError creates an AppError for a malformed stream.
func DataError(reason string) *AppError {
	return &AppError{
		Code: ErrCodeDataError, Message: reason,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// Xrun creates an AppError reporting an xrun on a pipeline.
func Xrun(pipelineID uint32) *AppError {
	return &AppError{
		Code: ErrCodeXrun, Message: fmt.Sprintf("pipeline %d is in xrun", pipelineID),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"pipeline": pipelineID},
	}
}

// --- Fatal and internal errors ---

// Fatal creates an AppError for an unrecoverable fault.
func Fatal(reason string) *AppError {
	return &AppError{
		Code: ErrCodeFatal, Message: reason,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Internal creates an AppError wrapping an unexpected error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "unexpected internal error",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// --- Helpers ---

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable reports whether err is a retryable AppError.
func IsRetryable(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Retryable
}

// Status maps any error to an IPC reply status: 0 for nil, the AppError
// status when available, -EFAULT otherwise.
func Status(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Status()
	}
	return -errnoFault
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
