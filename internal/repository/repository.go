package repository

import (
	"context"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
)

// NewCartLine holds the parameters of a cart add request.
type NewCartLine struct {
	ProductID     int64                 `json:"product_id"`
	Quantity      int                   `json:"quantity"`
	Customization *domain.Customization `json:"customization,omitempty"`
}

// EventWishlistUpdate holds the mutable fields of an event wishlist entry.
// A nil field is left unchanged.
type EventWishlistUpdate struct {
	Notes                  *string                        `json:"notes,omitempty"`
	NotificationPreference *domain.NotificationPreference `json:"notification_preference,omitempty"`
}

// CartStore is the authoritative cart of an authenticated user.
type CartStore interface {
	// List returns every line in the session's cart.
	List(ctx context.Context, s domain.Session) ([]domain.CartLine, error)

	// Add adds a product. The store merges quantities when the product is already present.
	Add(ctx context.Context, s domain.Session, line NewCartLine) (*domain.CartLine, error)

	// UpdateQuantity sets a line's quantity. It returns nil when the store removed the line.
	UpdateQuantity(ctx context.Context, s domain.Session, lineID string, quantity int) (*domain.CartLine, error)

	// Remove deletes a line.
	Remove(ctx context.Context, s domain.Session, lineID string) error

	// Clear deletes every line.
	Clear(ctx context.Context, s domain.Session) error
}

// WishlistStore is the authoritative product wishlist of an authenticated user.
type WishlistStore interface {
	List(ctx context.Context, s domain.Session) ([]domain.WishlistEntry, error)

	// Add fails with apperrors.ErrAlreadyExists when the product is already saved.
	Add(ctx context.Context, s domain.Session, productID int64) (*domain.WishlistEntry, error)

	// Remove fails with apperrors.ErrNotFound when the product is not saved.
	Remove(ctx context.Context, s domain.Session, productID int64) error

	UpdateNotes(ctx context.Context, s domain.Session, entryID, notes string) (*domain.WishlistEntry, error)
}

// EventWishlistStore is the authoritative event wishlist of an authenticated user.
type EventWishlistStore interface {
	List(ctx context.Context, s domain.Session) ([]domain.EventWishlistEntry, error)

	// Add fails with apperrors.ErrAlreadyExists when the event is already saved.
	Add(ctx context.Context, s domain.Session, eventID string, pref domain.NotificationPreference) (*domain.EventWishlistEntry, error)

	// Remove fails with apperrors.ErrNotFound when the event is not saved.
	Remove(ctx context.Context, s domain.Session, eventID string) error

	Update(ctx context.Context, s domain.Session, entryID string, upd EventWishlistUpdate) (*domain.EventWishlistEntry, error)
}

const guestKeyPrefix = "guest:"

// GuestWishlistKey returns the GuestStore key of a guest's product wishlist.
func GuestWishlistKey(guestID string) string {
	return guestKeyPrefix + guestID + ":wishlist"
}

// GuestEventWishlistKey returns the GuestStore key of a guest's event wishlist.
func GuestEventWishlistKey(guestID string) string {
	return guestKeyPrefix + guestID + ":event-wishlist"
}

// GuestStore is the local persistent key-value store for guest sessions.
// Keys are built with GuestWishlistKey and GuestEventWishlistKey.
type GuestStore interface {
	// Get returns the stored value, or nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing whatever was there.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
