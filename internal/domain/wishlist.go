package domain

import (
	"fmt"
	"time"
)

// NotificationPreference controls which changes a wishlist owner is told about.
type NotificationPreference string

const (
	NotifyAll          NotificationPreference = "all"
	NotifyPriceChanges NotificationPreference = "price_changes"
	NotifyDateChanges  NotificationPreference = "date_changes"
	NotifyNone         NotificationPreference = "none"
)

// Valid reports whether p is one of the known preferences.
func (p NotificationPreference) Valid() bool {
	switch p {
	case NotifyAll, NotifyPriceChanges, NotifyDateChanges, NotifyNone:
		return true
	}
	return false
}

// ParseNotificationPreference validates s. An empty string defaults to NotifyAll.
func ParseNotificationPreference(s string) (NotificationPreference, error) {
	if s == "" {
		return NotifyAll, nil
	}
	p := NotificationPreference(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown notification preference %q", s)
	}
	return p, nil
}

// WishlistEntry is a saved product reference.
type WishlistEntry struct {
	ID                     string                 `json:"id"`
	ProductID              int64                  `json:"product_id"`
	OwnerID                string                 `json:"owner_id"`
	Notes                  string                 `json:"notes,omitempty"`
	NotificationPreference NotificationPreference `json:"notification_preference,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
}

// EventWishlistEntry is a saved event reference. It has its own lifecycle,
// independent of the product wishlist.
type EventWishlistEntry struct {
	ID                     string                 `json:"id"`
	EventID                string                 `json:"event_id"`
	OwnerID                string                 `json:"owner_id"`
	Notes                  string                 `json:"notes,omitempty"`
	NotificationPreference NotificationPreference `json:"notification_preference,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
}
