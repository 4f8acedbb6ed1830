package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeBadRequest    = "ERR_BAD_REQUEST"
	CodeNotFound      = "ERR_NOT_FOUND"
	CodeConflict      = "ERR_CONFLICT"
	CodeUnprocessable = "ERR_UNPROCESSABLE"
	CodeRateLimited   = "ERR_RATE_LIMITED"
	CodeInternal      = "ERR_INTERNAL"
)

// AppError is an error with the HTTP status and code sent to the client.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func NewAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, CodeRateLimited, message)
}

// ErrorRule sends every error matching Target to the client as Status/Code.
type ErrorRule struct {
	Target error
	Status int
	Code   string
}

// MapError converts err with the first rule whose Target it wraps. An
// *AppError already in the chain is returned as is. Anything else becomes a
// 500 carrying fallback, so internal messages are not exposed.
func MapError(err error, fallback string, rules ...ErrorRule) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, r := range rules {
		if errors.Is(err, r.Target) {
			return &AppError{Code: r.Code, Message: err.Error(), Status: r.Status, Err: err}
		}
	}
	return &AppError{Code: CodeInternal, Message: fallback, Status: http.StatusInternalServerError, Err: err}
}
