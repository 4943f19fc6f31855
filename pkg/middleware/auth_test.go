package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("storefront-test-secret")

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims(userID string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID,
		"email":   "buyer@example.com",
		"role":    "customer",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestHMACValidator_ValidToken(t *testing.T) {
	validate := NewHMACValidator(testSecret)

	claims, err := validate(signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("u-1")))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
}

func TestHMACValidator_SubjectFallback(t *testing.T) {
	validate := NewHMACValidator(testSecret)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-2",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	claims, err := validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-2", claims.UserID)
}

func TestHMACValidator_Rejects(t *testing.T) {
	validate := NewHMACValidator(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, []byte("other"), jwt.SigningMethodHS256, validClaims("u-1"))},
		{"expired", signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "u-1",
			"exp":     time.Now().Add(-time.Minute).Unix(),
		})},
		{"no expiry", signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u-1"})},
		{"no user", signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"garbage", "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestOptionalAuth_NoHeaderPassesThrough(t *testing.T) {
	var called bool
	handler := OptionalAuth(NewHMACValidator(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, UserIDFromContext(r.Context()))
		assert.Empty(t, TokenFromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_ValidTokenInjectsClaims(t *testing.T) {
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("u-9"))

	handler := OptionalAuth(NewHMACValidator(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u-9", UserIDFromContext(r.Context()))
		assert.Equal(t, "customer", RoleFromContext(r.Context()))
		assert.Equal(t, token, TokenFromContext(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_InvalidTokenRejected(t *testing.T) {
	handler := OptionalAuth(NewHMACValidator(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"Bearer nope", "Basic dXNlcjpwYXNz", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "UNAUTHORIZED", body["error"]["code"])
	}
}

func TestAuth_MissingHeaderRejected(t *testing.T) {
	handler := Auth(NewHMACValidator(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("u-3"))

	handler := Auth(NewHMACValidator(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u-3", UserIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
