package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/httputil"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/middleware"
)

// GuestCookie holds the guest id of an anonymous shopper.
const GuestCookie = "zembil_guest"

type contextKey string

const sessionKey contextKey = "storefront_session"

// CookieConfig controls the guest cookie.
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// Session resolves who is calling. A request that passed OptionalAuth is an
// authenticated session; anything else is a guest identified by the guest
// cookie, which is issued on first contact. The guest id is kept on
// authenticated sessions too so sign-in can find the data to merge.
//
// Every request also gets a notify.Recorder so the handlers can return the
// notifications raised while serving it.
func Session(cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s := domain.Session{
				UserID: middleware.UserIDFromContext(ctx),
				Token:  middleware.TokenFromContext(ctx),
			}

			if c, err := r.Cookie(GuestCookie); err == nil && validGuestID(c.Value) {
				s.GuestID = c.Value
			}
			if s.GuestID == "" && !s.Authenticated() {
				s.GuestID = uuid.NewString()
				setGuestCookie(w, cfg, s.GuestID)
			}

			if s.Authenticated() {
				ctx = logger.WithUserID(ctx, s.UserID)
			}
			if s.GuestID != "" {
				ctx = logger.WithGuestID(ctx, s.GuestID)
			}
			ctx = context.WithValue(ctx, sessionKey, s)
			ctx = notify.WithRecorder(ctx, notify.NewRecorder())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validGuestID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func setGuestCookie(w http.ResponseWriter, cfg CookieConfig, guestID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookie,
		Value:    guestID,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearGuestCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromContext returns the session resolved by Session.
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(sessionKey).(domain.Session)
	return s, ok
}

// SessionRateKey charges rate limits to the session, falling back to the
// client IP before the session is resolved.
func SessionRateKey(r *http.Request) string {
	if s, ok := SessionFromContext(r.Context()); ok {
		return s.Key()
	}
	return "ip:" + middleware.ClientIP(r)
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
