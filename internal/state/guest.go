package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// Guest wishlists live in the guest store as JSON arrays of ids with set
// semantics. They are read and written synchronously; concurrent tabs of
// the same guest overwrite each other (last writer wins).

func guestWishlistEntry(productID int64) domain.WishlistEntry {
	return domain.WishlistEntry{
		ID:        "guest-" + strconv.FormatInt(productID, 10),
		ProductID: productID,
		OwnerID:   domain.GuestOwner,
	}
}

func guestEventEntry(eventID string) domain.EventWishlistEntry {
	return domain.EventWishlistEntry{
		ID:                     "guest-" + eventID,
		EventID:                eventID,
		OwnerID:                domain.GuestOwner,
		NotificationPreference: domain.NotifyAll,
	}
}

func guestWishlistEntries(ids []int64) []domain.WishlistEntry {
	out := make([]domain.WishlistEntry, len(ids))
	for i, id := range ids {
		out[i] = guestWishlistEntry(id)
	}
	return out
}

func guestEventEntries(ids []string) []domain.EventWishlistEntry {
	out := make([]domain.EventWishlistEntry, len(ids))
	for i, id := range ids {
		out[i] = guestEventEntry(id)
	}
	return out
}

// readIDs loads the id set stored under key. A corrupt value is logged and
// read as an empty set so that a bad write never locks the guest out.
func (m *Manager) readIDs(ctx context.Context, key string, dst any) error {
	data, err := m.deps.Guest.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read guest set %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "discarding corrupt guest set",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (m *Manager) writeIDs(ctx context.Context, key string, ids any) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode guest set %s: %w", key, err)
	}
	if err := m.deps.Guest.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write guest set %s: %w", key, err)
	}
	return nil
}

func (m *Manager) guestProductIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := m.readIDs(ctx, repository.GuestWishlistKey(m.Session().GuestID), &ids); err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

func (m *Manager) guestEventIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := m.readIDs(ctx, repository.GuestEventWishlistKey(m.Session().GuestID), &ids); err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

func dedupe[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (m *Manager) loadGuest(ctx context.Context) error {
	products, err := m.guestProductIDs(ctx)
	if err != nil {
		return fmt.Errorf("load guest wishlist: %w", err)
	}
	events, err := m.guestEventIDs(ctx)
	if err != nil {
		return fmt.Errorf("load guest event wishlist: %w", err)
	}

	m.mu.Lock()
	m.cart.set(nil)
	m.wishlist.set(guestWishlistEntries(products))
	m.events.set(guestEventEntries(events))
	m.mu.Unlock()
	return nil
}

// updateGuestSet runs one synchronous read-modify-write of a guest id set.
// edit returns the new set or an error that rejects the change.
func updateGuestSet[T comparable](ctx context.Context, m *Manager, op Operation, key string,
	edit func(ids []T) ([]T, error), publish func(ids []T), success, failTitle string,
) error {
	var ids []T
	if err := m.readIDs(ctx, key, &ids); err != nil {
		return m.fail(ctx, op, failTitle, apperrors.Internal(err), false)
	}
	next, err := edit(dedupe(ids))
	if err != nil {
		return m.fail(ctx, op, failTitle, err, false)
	}
	if err := m.writeIDs(ctx, key, next); err != nil {
		return m.fail(ctx, op, failTitle, apperrors.Internal(err), false)
	}

	m.mu.Lock()
	publish(next)
	m.mu.Unlock()

	m.notify(ctx, notify.Notification{Level: notify.LevelSuccess, Title: success, Operation: string(op)})
	return nil
}

func (m *Manager) addGuestProduct(ctx context.Context, productID int64) error {
	return updateGuestSet(ctx, m, OpAddToWishlist, repository.GuestWishlistKey(m.Session().GuestID),
		func(ids []int64) ([]int64, error) {
			if slices.Contains(ids, productID) {
				return nil, alreadyInWishlist(productID)
			}
			return append(ids, productID), nil
		},
		func(ids []int64) { m.wishlist.set(guestWishlistEntries(ids)) },
		"Added to wishlist", "Could not add to wishlist",
	)
}

func (m *Manager) removeGuestProduct(ctx context.Context, productID int64) error {
	return updateGuestSet(ctx, m, OpRemoveFromWishlist, repository.GuestWishlistKey(m.Session().GuestID),
		func(ids []int64) ([]int64, error) {
			i := slices.Index(ids, productID)
			if i < 0 {
				return nil, notInWishlist(productID)
			}
			return slices.Delete(ids, i, i+1), nil
		},
		func(ids []int64) { m.wishlist.set(guestWishlistEntries(ids)) },
		"Removed from wishlist", "Could not remove from wishlist",
	)
}

func (m *Manager) addGuestEvent(ctx context.Context, eventID string) error {
	return updateGuestSet(ctx, m, OpAddEventToWishlist, repository.GuestEventWishlistKey(m.Session().GuestID),
		func(ids []string) ([]string, error) {
			if slices.Contains(ids, eventID) {
				return nil, alreadyInEventWishlist(eventID)
			}
			return append(ids, eventID), nil
		},
		func(ids []string) { m.events.set(guestEventEntries(ids)) },
		"Event saved", "Could not save event",
	)
}

func (m *Manager) removeGuestEvent(ctx context.Context, eventID string) error {
	return updateGuestSet(ctx, m, OpRemoveEventFromWishlist, repository.GuestEventWishlistKey(m.Session().GuestID),
		func(ids []string) ([]string, error) {
			i := slices.Index(ids, eventID)
			if i < 0 {
				return nil, notInEventWishlist(eventID)
			}
			return slices.Delete(ids, i, i+1), nil
		},
		func(ids []string) { m.events.set(guestEventEntries(ids)) },
		"Event removed", "Could not remove event",
	)
}
