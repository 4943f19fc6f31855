// Package errors defines the service's error vocabulary: sentinels that
// callers match with errors.Is, and AppError, which carries the public code,
// message and HTTP status of a failure.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched with errors.Is.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrTooManyRequest = errors.New("too many requests")
)

// Public error codes.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	CodeRateLimited       = "RATE_LIMITED"
)

// AppError is an error with a client-facing code, message and status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// kind describes how a bare sentinel is presented when no AppError wraps it.
// An empty message means the error text itself is safe to show.
type kind struct {
	sentinel error
	code     string
	status   int
	message  string
}

var kinds = []kind{
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest, ""},
	{ErrNotFound, CodeNotFound, http.StatusNotFound, "resource not found"},
	{ErrAlreadyExists, CodeAlreadyExists, http.StatusConflict, "resource already exists"},
	{ErrConflict, CodeConflict, http.StatusConflict, "the resource was changed by another request"},
	{ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{ErrForbidden, CodeForbidden, http.StatusForbidden, "forbidden"},
	{ErrTooManyRequest, CodeRateLimited, http.StatusTooManyRequests, "too many requests"},
	{ErrServiceUnavail, CodeRemoteUnavailable, http.StatusBadGateway, "an upstream service is unavailable, please try again"},
}

func newError(sentinel error, code string, status int, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Status: status, Err: sentinel}
}

// NotFound reports a missing resource by id.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, CodeNotFound, http.StatusNotFound, "%s with id %s not found", resource, id)
}

// NotIn reports a missing collection member, e.g. "product 42 is not in wishlist".
func NotIn(collection, resource, id string) *AppError {
	return newError(ErrNotFound, CodeNotFound, http.StatusNotFound, "%s %s is not in %s", resource, id, collection)
}

// AlreadyExists reports a uniqueness violation on field.
func AlreadyExists(resource, field, value string) *AppError {
	return newError(ErrAlreadyExists, CodeAlreadyExists, http.StatusConflict, "%s with %s %q already exists", resource, field, value)
}

// AlreadyIn reports a duplicate collection member, e.g. "product 42 is already in wishlist".
func AlreadyIn(collection, resource, id string) *AppError {
	return newError(ErrAlreadyExists, CodeAlreadyExists, http.StatusConflict, "%s %s is already in %s", resource, id, collection)
}

func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest, "%s", message)
}

func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized, "%s", message)
}

func Forbidden(message string) *AppError {
	return newError(ErrForbidden, CodeForbidden, http.StatusForbidden, "%s", message)
}

// Conflict reports a concurrent modification.
func Conflict(message string) *AppError {
	return newError(ErrConflict, CodeConflict, http.StatusConflict, "%s", message)
}

func TooManyRequests(message string) *AppError {
	return newError(ErrTooManyRequest, CodeRateLimited, http.StatusTooManyRequests, "%s", message)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "an internal error occurred", Status: http.StatusInternalServerError, Err: err}
}

// RemoteUnavailable reports a failed call to an upstream store. The result
// matches both ErrServiceUnavail and err.
func RemoteUnavailable(service string, err error) *AppError {
	return &AppError{
		Code:    CodeRemoteUnavailable,
		Message: service + " is unavailable, please try again",
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrServiceUnavail, err),
	}
}

// Classify returns err as an AppError. Bare or wrapped sentinels get their
// standard code and status; anything else becomes Internal. nil stays nil.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			msg := k.message
			if msg == "" {
				msg = err.Error()
			}
			return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
		}
	}
	return Internal(err)
}

// HTTPStatus returns the status Classify assigns to err, or 200 for nil.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Classify(err).Status
}

// IsExpected reports whether err is a user-facing, non-fatal condition
// (validation, duplicate, missing member) rather than a remote failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound)
}
