package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/httpclient"
)

// WishlistStore implements repository.WishlistStore against the remote wishlist store.
type WishlistStore struct {
	endpoint
}

// NewWishlistStore creates a wishlist store client rooted at baseURL.
func NewWishlistStore(api *httpclient.CircuitBreakerClient, baseURL string) *WishlistStore {
	return &WishlistStore{endpoint: newEndpoint(api, baseURL)}
}

// List handles GET /api/v1/wishlist.
func (w *WishlistStore) List(ctx context.Context, s domain.Session) ([]domain.WishlistEntry, error) {
	var entries []domain.WishlistEntry
	if err := call(ctx, w.endpoint, s, http.MethodGet, "/api/v1/wishlist", nil, &entries); err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	if entries == nil {
		entries = []domain.WishlistEntry{}
	}
	return entries, nil
}

// Add handles POST /api/v1/wishlist. A 409 surfaces as apperrors.ErrAlreadyExists.
func (w *WishlistStore) Add(ctx context.Context, s domain.Session, productID int64) (*domain.WishlistEntry, error) {
	var out domain.WishlistEntry
	body := map[string]int64{"product_id": productID}
	if err := call(ctx, w.endpoint, s, http.MethodPost, "/api/v1/wishlist", body, &out); err != nil {
		return nil, fmt.Errorf("add product %d to wishlist: %w", productID, err)
	}
	return &out, nil
}

// Remove handles DELETE /api/v1/wishlist/{productId}. A 404 surfaces as apperrors.ErrNotFound.
func (w *WishlistStore) Remove(ctx context.Context, s domain.Session, productID int64) error {
	path := "/api/v1/wishlist/" + strconv.FormatInt(productID, 10)
	if err := call[struct{}](ctx, w.endpoint, s, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove product %d from wishlist: %w", productID, err)
	}
	return nil
}

// UpdateNotes handles PATCH /api/v1/wishlist/{id}/notes.
func (w *WishlistStore) UpdateNotes(ctx context.Context, s domain.Session, entryID, notes string) (*domain.WishlistEntry, error) {
	var out domain.WishlistEntry
	body := map[string]string{"notes": notes}
	path := "/api/v1/wishlist/" + url.PathEscape(entryID) + "/notes"
	if err := call(ctx, w.endpoint, s, http.MethodPatch, path, body, &out); err != nil {
		return nil, fmt.Errorf("update wishlist notes %s: %w", entryID, err)
	}
	return &out, nil
}
