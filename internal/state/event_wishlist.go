package state

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
)

func alreadyInEventWishlist(eventID string) error {
	return apperrors.AlreadyIn("your saved events", "event", eventID)
}

func notInEventWishlist(eventID string) error {
	return apperrors.NotIn("your saved events", "event", eventID)
}

func eventWishlistErr(eventID string) func(error) error {
	return func(err error) error {
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			return alreadyInEventWishlist(eventID)
		case errors.Is(err, apperrors.ErrNotFound):
			return notInEventWishlist(eventID)
		}
		return err
	}
}

func findEvent(entries []domain.EventWishlistEntry, eventID string) int {
	return slices.IndexFunc(entries, func(e domain.EventWishlistEntry) bool { return e.EventID == eventID })
}

func findEventEntry(entries []domain.EventWishlistEntry, entryID string) int {
	return slices.IndexFunc(entries, func(e domain.EventWishlistEntry) bool { return e.ID == entryID })
}

// EventWishlistItems returns a copy of the event wishlist.
func (m *Manager) EventWishlistItems() []domain.EventWishlistEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events.copyItems()
}

// IsEventInWishlist reports whether eventID is saved.
func (m *Manager) IsEventInWishlist(eventID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findEvent(m.events.items, eventID) >= 0
}

// AddEventToWishlist saves an event with the given notification preference.
// Guests keep only the event id; the preference applies once they sign in.
func (m *Manager) AddEventToWishlist(ctx context.Context, eventID string, pref domain.NotificationPreference) error {
	return m.addEventToWishlist(ctx, eventID, pref, false)
}

// RemoveEventFromWishlist deletes a saved event.
func (m *Manager) RemoveEventFromWishlist(ctx context.Context, eventID string) error {
	session := m.Session()
	if strings.TrimSpace(eventID) == "" {
		return m.fail(ctx, OpRemoveEventFromWishlist, "Could not remove event",
			apperrors.InvalidInput("event id is required"), false)
	}
	if !session.Authenticated() {
		return m.removeGuestEvent(ctx, eventID)
	}

	_, err := execute(ctx, m, mutation[domain.EventWishlistEntry, struct{}]{
		op:         OpRemoveEventFromWishlist,
		collection: collectionEventWishlist,
		coll:       &m.events,
		apply: func(entries []domain.EventWishlistEntry) ([]domain.EventWishlistEntry, error) {
			i := findEvent(entries, eventID)
			if i < 0 {
				return nil, notInEventWishlist(eventID)
			}
			return slices.Delete(entries, i, i+1), nil
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.deps.EventWishlist.Remove(ctx, session, eventID)
		},
		refresh: func(ctx context.Context) ([]domain.EventWishlistEntry, error) {
			return m.deps.EventWishlist.List(ctx, session)
		},
		reconcile: func(entries []domain.EventWishlistEntry, _ struct{}) []domain.EventWishlistEntry {
			if i := findEvent(entries, eventID); i >= 0 {
				entries = slices.Delete(entries, i, i+1)
			}
			return entries
		},
		mapErr:    eventWishlistErr(eventID),
		success:   notify.Notification{Title: "Event removed"},
		failTitle: "Could not remove event",
	})
	return err
}

// ToggleEventWishlist removes eventID when saved and adds it otherwise,
// reporting whether the event ended up saved.
func (m *Manager) ToggleEventWishlist(ctx context.Context, eventID string, pref domain.NotificationPreference) (bool, error) {
	if m.IsEventInWishlist(eventID) {
		return false, m.RemoveEventFromWishlist(ctx, eventID)
	}
	if err := m.AddEventToWishlist(ctx, eventID, pref); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) addEventToWishlist(ctx context.Context, eventID string, pref domain.NotificationPreference, quiet bool) error {
	if strings.TrimSpace(eventID) == "" {
		return m.fail(ctx, OpAddEventToWishlist, "Could not save event",
			apperrors.InvalidInput("event id is required"), quiet)
	}
	if pref == "" {
		pref = domain.NotifyAll
	}
	if !pref.Valid() {
		return m.fail(ctx, OpAddEventToWishlist, "Could not save event",
			apperrors.InvalidInput("unknown notification preference "+string(pref)), quiet)
	}
	session := m.Session()
	if !session.Authenticated() {
		return m.addGuestEvent(ctx, eventID)
	}

	pending := domain.EventWishlistEntry{
		ID:                     m.tempID(),
		EventID:                eventID,
		OwnerID:                session.OwnerID(),
		NotificationPreference: pref,
		CreatedAt:              m.deps.Now().UTC(),
	}
	_, err := execute(ctx, m, mutation[domain.EventWishlistEntry, *domain.EventWishlistEntry]{
		op:         OpAddEventToWishlist,
		collection: collectionEventWishlist,
		coll:       &m.events,
		apply: func(entries []domain.EventWishlistEntry) ([]domain.EventWishlistEntry, error) {
			if findEvent(entries, eventID) >= 0 {
				return nil, alreadyInEventWishlist(eventID)
			}
			return append(entries, pending), nil
		},
		remote: func(ctx context.Context) (*domain.EventWishlistEntry, error) {
			return m.deps.EventWishlist.Add(ctx, session, eventID, pref)
		},
		refresh: func(ctx context.Context) ([]domain.EventWishlistEntry, error) {
			return m.deps.EventWishlist.List(ctx, session)
		},
		reconcile: func(entries []domain.EventWishlistEntry, confirmed *domain.EventWishlistEntry) []domain.EventWishlistEntry {
			i := findEventEntry(entries, pending.ID)
			switch {
			case confirmed == nil:
				return entries
			case i < 0:
				return append(entries, *confirmed)
			}
			entries[i] = *confirmed
			return entries
		},
		mapErr:    eventWishlistErr(eventID),
		success:   notify.Notification{Title: "Event saved"},
		failTitle: "Could not save event",
		quiet:     quiet,
	})
	return err
}

// UpdateEventWishlistEntry changes the notes and/or notification preference
// of a saved event. Nil arguments are left unchanged. Guests get a
// *SignInRequiredError.
func (m *Manager) UpdateEventWishlistEntry(ctx context.Context, entryID string, notes *string, pref *domain.NotificationPreference) error {
	session := m.Session()
	if !session.Authenticated() {
		return m.signInRequired("")
	}
	if notes == nil && pref == nil {
		return m.fail(ctx, OpUpdateEventWishlist, "Could not update event",
			apperrors.InvalidInput("nothing to update"), false)
	}
	if pref != nil && !pref.Valid() {
		return m.fail(ctx, OpUpdateEventWishlist, "Could not update event",
			apperrors.InvalidInput("unknown notification preference "+string(*pref)), false)
	}

	_, err := execute(ctx, m, mutation[domain.EventWishlistEntry, *domain.EventWishlistEntry]{
		op:         OpUpdateEventWishlist,
		collection: collectionEventWishlist,
		coll:       &m.events,
		apply: func(entries []domain.EventWishlistEntry) ([]domain.EventWishlistEntry, error) {
			i := findEventEntry(entries, entryID)
			if i < 0 {
				return nil, apperrors.NotIn("your saved events", "entry", entryID)
			}
			if notes != nil {
				entries[i].Notes = *notes
			}
			if pref != nil {
				entries[i].NotificationPreference = *pref
			}
			return entries, nil
		},
		remote: func(ctx context.Context) (*domain.EventWishlistEntry, error) {
			return m.deps.EventWishlist.Update(ctx, session, entryID, repository.EventWishlistUpdate{
				Notes:                  notes,
				NotificationPreference: pref,
			})
		},
		refresh: func(ctx context.Context) ([]domain.EventWishlistEntry, error) {
			return m.deps.EventWishlist.List(ctx, session)
		},
		reconcile: func(entries []domain.EventWishlistEntry, confirmed *domain.EventWishlistEntry) []domain.EventWishlistEntry {
			if i := findEventEntry(entries, entryID); i >= 0 && confirmed != nil {
				entries[i] = *confirmed
			}
			return entries
		},
		success:   notify.Notification{Title: "Event updated"},
		failTitle: "Could not update event",
	})
	return err
}
