package state

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
)

func alreadyInWishlist(productID int64) error {
	return apperrors.AlreadyIn("your wishlist", "product", strconv.FormatInt(productID, 10))
}

func notInWishlist(productID int64) error {
	return apperrors.NotIn("your wishlist", "product", strconv.FormatInt(productID, 10))
}

// wishlistErr maps the store's duplicate and missing responses onto the
// messages used for the local checks.
func wishlistErr(productID int64) func(error) error {
	return func(err error) error {
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			return alreadyInWishlist(productID)
		case errors.Is(err, apperrors.ErrNotFound):
			return notInWishlist(productID)
		}
		return err
	}
}

func findProductEntry(entries []domain.WishlistEntry, productID int64) int {
	return slices.IndexFunc(entries, func(e domain.WishlistEntry) bool { return e.ProductID == productID })
}

func findWishlistEntry(entries []domain.WishlistEntry, entryID string) int {
	return slices.IndexFunc(entries, func(e domain.WishlistEntry) bool { return e.ID == entryID })
}

// WishlistItems returns a copy of the product wishlist.
func (m *Manager) WishlistItems() []domain.WishlistEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wishlist.copyItems()
}

// IsInWishlist reports whether productID is in the wishlist.
func (m *Manager) IsInWishlist(productID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findProductEntry(m.wishlist.items, productID) >= 0
}

// AddToWishlist saves a product. Saving a product twice fails with an
// informational ErrAlreadyExists and makes no remote call.
func (m *Manager) AddToWishlist(ctx context.Context, productID int64) error {
	return m.addToWishlist(ctx, productID, false)
}

// RemoveFromWishlist deletes a saved product.
func (m *Manager) RemoveFromWishlist(ctx context.Context, productID int64) error {
	return m.removeFromWishlist(ctx, productID)
}

// ToggleWishlist removes productID when present and adds it otherwise. It
// reports whether the product ended up in the wishlist.
func (m *Manager) ToggleWishlist(ctx context.Context, productID int64) (bool, error) {
	if m.IsInWishlist(productID) {
		return false, m.RemoveFromWishlist(ctx, productID)
	}
	if err := m.AddToWishlist(ctx, productID); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) addToWishlist(ctx context.Context, productID int64, quiet bool) error {
	if productID <= 0 {
		return m.fail(ctx, OpAddToWishlist, "Could not add to wishlist",
			apperrors.InvalidInput("product id must be positive"), quiet)
	}
	session := m.Session()
	if !session.Authenticated() {
		return m.addGuestProduct(ctx, productID)
	}

	pending := domain.WishlistEntry{
		ID:        m.tempID(),
		ProductID: productID,
		OwnerID:   session.OwnerID(),
		CreatedAt: m.deps.Now().UTC(),
	}
	_, err := execute(ctx, m, mutation[domain.WishlistEntry, *domain.WishlistEntry]{
		op:         OpAddToWishlist,
		collection: collectionWishlist,
		coll:       &m.wishlist,
		apply: func(entries []domain.WishlistEntry) ([]domain.WishlistEntry, error) {
			if findProductEntry(entries, productID) >= 0 {
				return nil, alreadyInWishlist(productID)
			}
			return append(entries, pending), nil
		},
		remote: func(ctx context.Context) (*domain.WishlistEntry, error) {
			return m.deps.Wishlist.Add(ctx, session, productID)
		},
		refresh: func(ctx context.Context) ([]domain.WishlistEntry, error) {
			return m.deps.Wishlist.List(ctx, session)
		},
		reconcile: func(entries []domain.WishlistEntry, confirmed *domain.WishlistEntry) []domain.WishlistEntry {
			i := findWishlistEntry(entries, pending.ID)
			switch {
			case confirmed == nil:
				return entries
			case i < 0:
				return append(entries, *confirmed)
			}
			entries[i] = *confirmed
			return entries
		},
		mapErr:    wishlistErr(productID),
		success:   notify.Notification{Title: "Added to wishlist"},
		failTitle: "Could not add to wishlist",
		quiet:     quiet,
	})
	return err
}

func (m *Manager) removeFromWishlist(ctx context.Context, productID int64) error {
	session := m.Session()
	if !session.Authenticated() {
		return m.removeGuestProduct(ctx, productID)
	}

	_, err := execute(ctx, m, mutation[domain.WishlistEntry, struct{}]{
		op:         OpRemoveFromWishlist,
		collection: collectionWishlist,
		coll:       &m.wishlist,
		apply: func(entries []domain.WishlistEntry) ([]domain.WishlistEntry, error) {
			i := findProductEntry(entries, productID)
			if i < 0 {
				return nil, notInWishlist(productID)
			}
			return slices.Delete(entries, i, i+1), nil
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.deps.Wishlist.Remove(ctx, session, productID)
		},
		refresh: func(ctx context.Context) ([]domain.WishlistEntry, error) {
			return m.deps.Wishlist.List(ctx, session)
		},
		reconcile: func(entries []domain.WishlistEntry, _ struct{}) []domain.WishlistEntry {
			if i := findProductEntry(entries, productID); i >= 0 {
				entries = slices.Delete(entries, i, i+1)
			}
			return entries
		},
		mapErr:    wishlistErr(productID),
		success:   notify.Notification{Title: "Removed from wishlist"},
		failTitle: "Could not remove from wishlist",
	})
	return err
}

// UpdateWishlistNotes replaces the notes of a wishlist entry. Notes are only
// kept by the remote store, so guests get a *SignInRequiredError.
func (m *Manager) UpdateWishlistNotes(ctx context.Context, entryID, notes string) error {
	session := m.Session()
	if !session.Authenticated() {
		return m.signInRequired("")
	}

	_, err := execute(ctx, m, mutation[domain.WishlistEntry, *domain.WishlistEntry]{
		op:         OpUpdateWishlistNotes,
		collection: collectionWishlist,
		coll:       &m.wishlist,
		apply: func(entries []domain.WishlistEntry) ([]domain.WishlistEntry, error) {
			i := findWishlistEntry(entries, entryID)
			if i < 0 {
				return nil, apperrors.NotIn("your wishlist", "entry", entryID)
			}
			entries[i].Notes = notes
			return entries, nil
		},
		remote: func(ctx context.Context) (*domain.WishlistEntry, error) {
			return m.deps.Wishlist.UpdateNotes(ctx, session, entryID, notes)
		},
		refresh: func(ctx context.Context) ([]domain.WishlistEntry, error) {
			return m.deps.Wishlist.List(ctx, session)
		},
		reconcile: func(entries []domain.WishlistEntry, confirmed *domain.WishlistEntry) []domain.WishlistEntry {
			if i := findWishlistEntry(entries, entryID); i >= 0 && confirmed != nil {
				entries[i] = *confirmed
			}
			return entries
		},
		success:   notify.Notification{Title: "Notes saved"},
		failTitle: "Could not save notes",
	})
	return err
}
