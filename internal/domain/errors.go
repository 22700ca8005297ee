package domain

import (
	"errors"
	"net/http"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrEmailTaken           = errors.New("email already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrBadCredentials       = errors.New("incorrect password")
	ErrMissingFields        = errors.New("missing fields")
	ErrOldPasswordIncorrect = errors.New("old password incorrect")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("reset token requested too soon")
	ErrInvalidOrExpired     = errors.New("invalid or expired reset token")
	ErrEmailDelivery        = errors.New("email delivery failed")
	ErrUpstream             = errors.New("upstream failure")
)

// AppError is an error that carries the HTTP status and the message shown to
// the client. Err keeps the sentinel kind and, for upstream failures, the
// underlying cause.
type AppError struct {
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Err }

func NewError(status int, kind error, message string) *AppError {
	return &AppError{Status: status, Message: message, Err: kind}
}

// ValidationError reports field level problems with the request body.
func ValidationError(fields map[string]string) *AppError {
	msg := "Invalid request data."
	if len(fields) == 1 {
		for _, m := range fields {
			msg = m
		}
	}
	return &AppError{
		Status:  http.StatusBadRequest,
		Message: msg,
		Fields:  fields,
		Err:     ErrValidation,
	}
}

// Upstream wraps a store or transport failure. The cause is kept for logs and
// development diagnostics; clients only see message.
func Upstream(kind error, message string, cause error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     errors.Join(kind, cause),
	}
}
