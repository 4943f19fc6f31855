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

// CartStore implements repository.CartStore against the remote cart store.
type CartStore struct {
	endpoint
}

// NewCartStore creates a cart store client rooted at baseURL.
func NewCartStore(api *httpclient.CircuitBreakerClient, baseURL string) *CartStore {
	return &CartStore{endpoint: newEndpoint(api, baseURL)}
}

// List handles GET /api/v1/cart.
func (c *CartStore) List(ctx context.Context, s domain.Session) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := call(ctx, c.endpoint, s, http.MethodGet, "/api/v1/cart", nil, &lines); err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return lines, nil
}

// Add handles POST /api/v1/cart/items.
func (c *CartStore) Add(ctx context.Context, s domain.Session, line repository.NewCartLine) (*domain.CartLine, error) {
	var out domain.CartLine
	if err := call(ctx, c.endpoint, s, http.MethodPost, "/api/v1/cart/items", line, &out); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return &out, nil
}

// UpdateQuantity handles PATCH /api/v1/cart/items/{id}. A null data field
// means the store removed the line.
func (c *CartStore) UpdateQuantity(ctx context.Context, s domain.Session, lineID string, quantity int) (*domain.CartLine, error) {
	var out *domain.CartLine
	body := map[string]int{"quantity": quantity}
	if err := call(ctx, c.endpoint, s, http.MethodPatch, "/api/v1/cart/items/"+url.PathEscape(lineID), body, &out); err != nil {
		return nil, fmt.Errorf("update cart item %s: %w", lineID, err)
	}
	return out, nil
}

// Remove handles DELETE /api/v1/cart/items/{id}.
func (c *CartStore) Remove(ctx context.Context, s domain.Session, lineID string) error {
	if err := call[struct{}](ctx, c.endpoint, s, http.MethodDelete, "/api/v1/cart/items/"+url.PathEscape(lineID), nil, nil); err != nil {
		return fmt.Errorf("remove cart item %s: %w", lineID, err)
	}
	return nil
}

// Clear handles DELETE /api/v1/cart.
func (c *CartStore) Clear(ctx context.Context, s domain.Session) error {
	if err := call[struct{}](ctx, c.endpoint, s, http.MethodDelete, "/api/v1/cart", nil, nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
