package state

import (
	"fmt"
	"net/url"
)

// Operation names a mutation kind. Each kind has its own in-flight flag.
type Operation string

const (
	OpAddToCart               Operation = "add_to_cart"
	OpUpdateQuantity          Operation = "update_quantity"
	OpRemoveItem              Operation = "remove_item"
	OpClearCart               Operation = "clear_cart"
	OpAddToWishlist           Operation = "add_to_wishlist"
	OpRemoveFromWishlist      Operation = "remove_from_wishlist"
	OpUpdateWishlistNotes     Operation = "update_wishlist_notes"
	OpAddEventToWishlist      Operation = "add_event_to_wishlist"
	OpRemoveEventFromWishlist Operation = "remove_event_from_wishlist"
	OpUpdateEventWishlist     Operation = "update_event_wishlist"
)

// Collection labels.
const (
	collectionCart          = "cart"
	collectionWishlist      = "wishlist"
	collectionEventWishlist = "event_wishlist"
)

// Flags exposes one boolean per mutation kind so the UI can disable controls
// while a request is in flight.
type Flags struct {
	IsAddingToCart              bool `json:"is_adding_to_cart"`
	IsUpdatingQuantity          bool `json:"is_updating_quantity"`
	IsRemovingItem              bool `json:"is_removing_item"`
	IsClearingCart              bool `json:"is_clearing_cart"`
	IsAddingToWishlist          bool `json:"is_adding_to_wishlist"`
	IsRemovingFromWishlist      bool `json:"is_removing_from_wishlist"`
	IsUpdatingWishlistNotes     bool `json:"is_updating_wishlist_notes"`
	IsAddingEventToWishlist     bool `json:"is_adding_event_to_wishlist"`
	IsRemovingEventFromWishlist bool `json:"is_removing_event_from_wishlist"`
	IsUpdatingEventWishlist     bool `json:"is_updating_event_wishlist"`
}

func flagsFrom(counts map[Operation]int) Flags {
	return Flags{
		IsAddingToCart:              counts[OpAddToCart] > 0,
		IsUpdatingQuantity:          counts[OpUpdateQuantity] > 0,
		IsRemovingItem:              counts[OpRemoveItem] > 0,
		IsClearingCart:              counts[OpClearCart] > 0,
		IsAddingToWishlist:          counts[OpAddToWishlist] > 0,
		IsRemovingFromWishlist:      counts[OpRemoveFromWishlist] > 0,
		IsUpdatingWishlistNotes:     counts[OpUpdateWishlistNotes] > 0,
		IsAddingEventToWishlist:     counts[OpAddEventToWishlist] > 0,
		IsRemovingEventFromWishlist: counts[OpRemoveEventFromWishlist] > 0,
		IsUpdatingEventWishlist:     counts[OpUpdateEventWishlist] > 0,
	}
}

// SignInRequiredError is returned when a guest attempts a cart operation.
// It is a navigation instruction rather than a failure.
type SignInRequiredError struct {
	SignInPath string
	ReturnTo   string
}

func (e *SignInRequiredError) Error() string {
	return "sign in required"
}

// RedirectURL is the sign-in page URL carrying the return target.
func (e *SignInRequiredError) RedirectURL() string {
	if e.ReturnTo == "" {
		return e.SignInPath
	}
	return fmt.Sprintf("%s?returnTo=%s", e.SignInPath, url.QueryEscape(e.ReturnTo))
}
