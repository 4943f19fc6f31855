package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/httpclient"
)

// EventWishlistStore implements repository.EventWishlistStore against the remote wishlist store.
type EventWishlistStore struct {
	endpoint
}

// NewEventWishlistStore creates an event wishlist client rooted at baseURL.
func NewEventWishlistStore(api *httpclient.CircuitBreakerClient, baseURL string) *EventWishlistStore {
	return &EventWishlistStore{endpoint: newEndpoint(api, baseURL)}
}

type addEventRequest struct {
	EventID                string                        `json:"event_id"`
	NotificationPreference domain.NotificationPreference `json:"notification_preference"`
}

// List handles GET /api/v1/event-wishlist.
func (e *EventWishlistStore) List(ctx context.Context, s domain.Session) ([]domain.EventWishlistEntry, error) {
	var entries []domain.EventWishlistEntry
	if err := call(ctx, e.endpoint, s, http.MethodGet, "/api/v1/event-wishlist", nil, &entries); err != nil {
		return nil, fmt.Errorf("list event wishlist: %w", err)
	}
	if entries == nil {
		entries = []domain.EventWishlistEntry{}
	}
	return entries, nil
}

// Add handles POST /api/v1/event-wishlist.
func (e *EventWishlistStore) Add(ctx context.Context, s domain.Session, eventID string, pref domain.NotificationPreference) (*domain.EventWishlistEntry, error) {
	var out domain.EventWishlistEntry
	body := addEventRequest{EventID: eventID, NotificationPreference: pref}
	if err := call(ctx, e.endpoint, s, http.MethodPost, "/api/v1/event-wishlist", body, &out); err != nil {
		return nil, fmt.Errorf("add event %s to wishlist: %w", eventID, err)
	}
	return &out, nil
}

// Remove handles DELETE /api/v1/event-wishlist/{eventId}.
func (e *EventWishlistStore) Remove(ctx context.Context, s domain.Session, eventID string) error {
	path := "/api/v1/event-wishlist/" + url.PathEscape(eventID)
	if err := call[struct{}](ctx, e.endpoint, s, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove event %s from wishlist: %w", eventID, err)
	}
	return nil
}

// Update handles PATCH /api/v1/event-wishlist/{id}.
func (e *EventWishlistStore) Update(ctx context.Context, s domain.Session, entryID string, upd repository.EventWishlistUpdate) (*domain.EventWishlistEntry, error) {
	var out domain.EventWishlistEntry
	path := "/api/v1/event-wishlist/" + url.PathEscape(entryID)
	if err := call(ctx, e.endpoint, s, http.MethodPatch, path, upd, &out); err != nil {
		return nil, fmt.Errorf("update event wishlist entry %s: %w", entryID, err)
	}
	return &out, nil
}
