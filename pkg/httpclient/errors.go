package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
)

// storeError is the {"error":{"code","message"}} body the cart and wishlist
// stores send with a failure.
type storeError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response
// from store and returns the matching AppError. A structured body keeps its
// message; otherwise the raw body, or the status text, is used.
func ParseResponseError(resp *http.Response, store string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.RemoteUnavailable(store, fmt.Errorf("status %d, body unreadable: %w", resp.StatusCode, err))
	}

	code, message := "", string(raw)
	var body storeError
	if json.Unmarshal(raw, &body) == nil && body.Error != nil {
		code, message = body.Error.Code, body.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return fromStatus(resp.StatusCode, code, message, store)
}

func fromStatus(status int, code, message, store string) error {
	switch status {
	case http.StatusNotFound:
		return &apperrors.AppError{Code: apperrors.CodeNotFound, Message: message, Status: status, Err: apperrors.ErrNotFound}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case http.StatusConflict:
		// A bare 409 from a store means the member is already present.
		if code == apperrors.CodeConflict {
			return apperrors.Conflict(message)
		}
		return &apperrors.AppError{Code: apperrors.CodeAlreadyExists, Message: message, Status: status, Err: apperrors.ErrAlreadyExists}
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case http.StatusForbidden:
		return apperrors.Forbidden(message)
	case http.StatusTooManyRequests:
		return apperrors.TooManyRequests(message)
	}
	if status >= 500 {
		return apperrors.RemoteUnavailable(store, fmt.Errorf("status %d: %s", status, message))
	}
	if code == "" {
		code = "UPSTREAM_ERROR"
	}
	return &apperrors.AppError{Code: code, Message: store + ": " + message, Status: status}
}
