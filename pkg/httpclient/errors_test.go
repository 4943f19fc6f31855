package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
)

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     string
		httpCode int
		message  string
	}{
		{"structured 404", 404, `{"error":{"code":"NOT_FOUND","message":"cart line not found"}}`, apperrors.ErrNotFound, "NOT_FOUND", 404, "cart line not found"},
		{"structured 400", 400, `{"error":{"code":"INVALID_INPUT","message":"quantity must be positive"}}`, apperrors.ErrInvalidInput, "INVALID_INPUT", 400, "quantity must be positive"},
		{"422 is invalid input", 422, `{"error":{"code":"UNPROCESSABLE","message":"bad customization"}}`, apperrors.ErrInvalidInput, "INVALID_INPUT", 400, "bad customization"},
		{"structured duplicate", 409, `{"error":{"code":"ALREADY_EXISTS","message":"product already in wishlist"}}`, apperrors.ErrAlreadyExists, "ALREADY_EXISTS", 409, "product already in wishlist"},
		{"bare 409 is duplicate", 409, `duplicate`, apperrors.ErrAlreadyExists, "ALREADY_EXISTS", 409, "duplicate"},
		{"concurrent edit", 409, `{"error":{"code":"CONFLICT","message":"line changed"}}`, apperrors.ErrConflict, "CONFLICT", 409, "line changed"},
		{"401", 401, `{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`, apperrors.ErrUnauthorized, "UNAUTHORIZED", 401, "token expired"},
		{"403", 403, ``, apperrors.ErrForbidden, "FORBIDDEN", 403, "Forbidden"},
		{"429", 429, `slow down`, apperrors.ErrTooManyRequest, "RATE_LIMITED", 429, "slow down"},
		{"500", 500, `{"error":{"code":"INTERNAL","message":"db down"}}`, apperrors.ErrServiceUnavail, "REMOTE_UNAVAILABLE", 502, "cart-store is unavailable, please try again"},
		{"503 plain", 503, `maintenance`, apperrors.ErrServiceUnavail, "REMOTE_UNAVAILABLE", 502, "cart-store is unavailable, please try again"},
		{"null error object", 404, `{"error":null}`, apperrors.ErrNotFound, "NOT_FOUND", 404, `{"error":null}`},
		{"unmapped 4xx keeps code", 418, `{"error":{"code":"TEAPOT","message":"short and stout"}}`, nil, "TEAPOT", 418, "cart-store: short and stout"},
		{"unmapped 4xx plain", 410, ``, nil, "UPSTREAM_ERROR", 410, "cart-store: Gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &trackedBody{Reader: strings.NewReader(tt.body)}
			err := ParseResponseError(&http.Response{StatusCode: tt.status, Body: body}, "cart-store")

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr), "got %T: %v", err, err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.httpCode, appErr.Status)
			assert.Equal(t, tt.message, appErr.Message)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.True(t, body.closed)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestParseResponseError_UnreadableBody(t *testing.T) {
	err := ParseResponseError(&http.Response{StatusCode: 404, Body: io.NopCloser(failingReader{})}, "wishlist-store")

	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Contains(t, err.Error(), "body unreadable")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestParseResponseError_ExpectedOutcomes(t *testing.T) {
	dup := ParseResponseError(&http.Response{StatusCode: 409, Body: io.NopCloser(strings.NewReader(""))}, "wishlist-store")
	assert.True(t, apperrors.IsExpected(dup))

	down := ParseResponseError(&http.Response{StatusCode: 502, Body: io.NopCloser(strings.NewReader(""))}, "wishlist-store")
	assert.False(t, apperrors.IsExpected(down))
}
