// Package remote talks to the authoritative cart and wishlist stores over HTTP.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/httpclient"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// UserIDHeader carries the authenticated user id to the stores.
const UserIDHeader = "X-User-ID"

var (
	_ repository.CartStore          = (*CartStore)(nil)
	_ repository.WishlistStore      = (*WishlistStore)(nil)
	_ repository.EventWishlistStore = (*EventWishlistStore)(nil)
)

// envelope is the {"data": ...} wrapper every store response uses.
type envelope[T any] struct {
	Data T `json:"data"`
}

// endpoint is a store base URL plus the breaker-protected client that reaches it.
type endpoint struct {
	api     *httpclient.CircuitBreakerClient
	baseURL string
}

func newEndpoint(api *httpclient.CircuitBreakerClient, baseURL string) endpoint {
	return endpoint{api: api, baseURL: strings.TrimRight(baseURL, "/")}
}

// call sends payload to path on behalf of s and decodes the data field of the
// response into out. out may be nil when the caller only needs the ack.
func call[T any](ctx context.Context, e endpoint, s domain.Session, method, path string, payload any, out *T) error {
	req, err := httpclient.NewJSONRequest(ctx, method, e.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set(UserIDHeader, s.UserID)
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	if out == nil {
		return e.api.DoJSON(ctx, req, nil)
	}
	var env envelope[T]
	if err := e.api.DoJSON(ctx, req, &env); err != nil {
		return err
	}
	*out = env.Data
	return nil
}

// Pinger returns a readiness check that GETs the store's liveness endpoint.
func Pinger(api *httpclient.CircuitBreakerClient, baseURL string) func(ctx context.Context) error {
	url := strings.TrimRight(baseURL, "/") + "/health/live"
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("create ping request: %w", err)
		}
		return api.DoJSON(ctx, req, nil)
	}
}
