package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure returned to HTTP clients.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Status    int                    `json:"status"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Status:    e.Status(),
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
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

// ToAppError returns err as an AppError, wrapping foreign errors as Internal.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
