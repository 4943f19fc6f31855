package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/state"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/httputil"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/pagination"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/validator"
)

// StorefrontHandler serves the storefront state API.
type StorefrontHandler struct {
	registry *state.Registry
	cookie   CookieConfig
	logger   *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(registry *state.Registry, cookie CookieConfig, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		registry: registry,
		cookie:   cookie,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID     int64                   `json:"product_id" validate:"required,gt=0"`
	Quantity      *int                    `json:"quantity"`
	Customization *domain.Customization   `json:"customization"`
	Product       *domain.ProductSnapshot `json:"product"`
	ReturnTo      string                  `json:"return_to" validate:"omitempty,max=2048,localpath"`
}

// UpdateQuantityRequest is the JSON request body for changing a line's quantity.
// Zero or a negative value removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// NotesRequest is the JSON request body for wishlist notes.
type NotesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// EventPreferenceRequest is the JSON request body for saving an event.
type EventPreferenceRequest struct {
	NotificationPreference string `json:"notification_preference" validate:"omitempty,oneof=all price_changes date_changes none"`
}

// UpdateEventRequest is the JSON request body for editing a saved event.
type UpdateEventRequest struct {
	Notes                  *string `json:"notes" validate:"omitempty,max=1000"`
	NotificationPreference *string `json:"notification_preference" validate:"omitempty,oneof=all price_changes date_changes none"`
}

// --- Response DTOs ---

// MutationResponse is returned by every mutation: its result plus the state
// after the mutation settled.
type MutationResponse struct {
	Result any         `json:"result,omitempty"`
	State  state.State `json:"state"`
}

// TotalsResponse is the body of GET /cart/totals.
type TotalsResponse struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// SignInResponse is the body of POST /session/sign-in.
type SignInResponse struct {
	Merge state.MergeResult `json:"merge"`
	State state.State       `json:"state"`
}

// --- Helpers ---

// manager resolves the caller's state manager, writing the error response
// itself when that fails.
func (h *StorefrontHandler) manager(w http.ResponseWriter, r *http.Request) (*state.Manager, bool) {
	s, ok := SessionFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return nil, false
	}
	m, err := h.registry.Get(r.Context(), s)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return m, true
}

func notifications(r *http.Request) any {
	rec, ok := notify.RecorderFromContext(r.Context())
	if !ok || rec.Len() == 0 {
		return nil
	}
	return rec.Notifications()
}

func (h *StorefrontHandler) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	httputil.WriteJSON(w, status, httputil.Response{Data: data, Notifications: notifications(r)})
}

func (h *StorefrontHandler) writeMutation(w http.ResponseWriter, r *http.Request, status int, m *state.Manager, result any) {
	h.writeData(w, r, status, MutationResponse{Result: result, State: m.Snapshot()})
}

func (h *StorefrontHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var signIn *state.SignInRequiredError
	if errors.As(err, &signIn) {
		httputil.WriteRedirect(w, r, "SIGN_IN_REQUIRED", "sign in to continue", signIn.RedirectURL())
		return
	}
	httputil.WriteErrorWith(w, r, err, h.logger, notifications(r))
}

func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput("product id must be a positive integer")
	}
	return id, nil
}

// --- Session ---

// GetState handles GET /api/v1/storefront/state. ?refresh=true re-reads the
// backing stores first.
func (h *StorefrontHandler) GetState(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := m.Refresh(r.Context()); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeData(w, r, http.StatusOK, m.Snapshot())
}

// SignIn handles POST /api/v1/storefront/session/sign-in.
func (h *StorefrontHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	if !s.Authenticated() {
		httputil.WriteError(w, r, apperrors.Unauthorized("a valid bearer token is required to sign in"), h.logger)
		return
	}

	m, res, err := h.registry.SignIn(r.Context(), s.GuestID, s)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if s.GuestID != "" && res.Failed == 0 {
		clearGuestCookie(w, h.cookie)
	}
	h.writeData(w, r, http.StatusOK, SignInResponse{Merge: res, State: m.Snapshot()})
}

// --- Cart ---

// AddItem handles POST /api/v1/storefront/cart/items.
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	ref, err := m.AddItem(r.Context(), state.AddItemInput{
		ProductID:     req.ProductID,
		Quantity:      qty,
		Customization: req.Customization,
		Product:       req.Product,
		ReturnTo:      req.ReturnTo,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusCreated, m, ref)
}

// UpdateQuantity handles PATCH /api/v1/storefront/cart/items/{lineId}.
func (h *StorefrontHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.UpdateQuantity(r.Context(), chi.URLParam(r, "lineId"), *req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}

// RemoveItem handles DELETE /api/v1/storefront/cart/items/{lineId}.
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.RemoveItem(r.Context(), chi.URLParam(r, "lineId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}

// ClearCart handles DELETE /api/v1/storefront/cart.
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.ClearCart(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}

// GetTotals handles GET /api/v1/storefront/cart/totals.
func (h *StorefrontHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeData(w, r, http.StatusOK, TotalsResponse{TotalItems: m.TotalItems(), TotalPrice: m.TotalPrice()})
}

// Drawer handles POST /api/v1/storefront/cart/drawer/{action}.
func (h *StorefrontHandler) Drawer(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	switch chi.URLParam(r, "action") {
	case "open":
		m.OpenCart()
	case "close":
		m.CloseCart()
	case "toggle":
		m.ToggleCart()
	default:
		httputil.WriteError(w, r, apperrors.InvalidInput("action must be open, close or toggle"), h.logger)
		return
	}
	h.writeData(w, r, http.StatusOK, map[string]bool{"is_open": m.IsOpen()})
}

// --- Wishlist ---

// GetWishlist handles GET /api/v1/storefront/wishlist?page=&per_page=.
func (h *StorefrontHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeData(w, r, http.StatusOK, pagination.Page(m.WishlistItems(), pagination.FromRequest(r)))
}

// AddToWishlist handles POST /api/v1/storefront/wishlist/{productId}.
func (h *StorefrontHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.AddToWishlist(r.Context(), productID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusCreated, m, nil)
}

// RemoveFromWishlist handles DELETE /api/v1/storefront/wishlist/{productId}.
func (h *StorefrontHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.RemoveFromWishlist(r.Context(), productID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}

// ToggleWishlist handles POST /api/v1/storefront/wishlist/{productId}/toggle.
func (h *StorefrontHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	added, err := m.ToggleWishlist(r.Context(), productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, map[string]bool{"added": added})
}

// UpdateWishlistNotes handles PATCH /api/v1/storefront/wishlist/entries/{entryId}.
func (h *StorefrontHandler) UpdateWishlistNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.UpdateWishlistNotes(r.Context(), chi.URLParam(r, "entryId"), req.Notes); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}

// --- Event wishlist ---

// GetEventWishlist handles GET /api/v1/storefront/event-wishlist?page=&per_page=.
func (h *StorefrontHandler) GetEventWishlist(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	h.writeData(w, r, http.StatusOK, pagination.Page(m.EventWishlistItems(), pagination.FromRequest(r)))
}

// AddEventToWishlist handles POST /api/v1/storefront/event-wishlist/{eventId}.
func (h *StorefrontHandler) AddEventToWishlist(w http.ResponseWriter, r *http.Request) {
	var req EventPreferenceRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	pref := domain.NotificationPreference(req.NotificationPreference)
	if err := m.AddEventToWishlist(r.Context(), chi.URLParam(r, "eventId"), pref); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusCreated, m, nil)
}

// RemoveEventFromWishlist handles DELETE /api/v1/storefront/event-wishlist/{eventId}.
func (h *StorefrontHandler) RemoveEventFromWishlist(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	if err := m.RemoveEventFromWishlist(r.Context(), chi.URLParam(r, "eventId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}

// ToggleEventWishlist handles POST /api/v1/storefront/event-wishlist/{eventId}/toggle.
func (h *StorefrontHandler) ToggleEventWishlist(w http.ResponseWriter, r *http.Request) {
	var req EventPreferenceRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	pref := domain.NotificationPreference(req.NotificationPreference)
	added, err := m.ToggleEventWishlist(r.Context(), chi.URLParam(r, "eventId"), pref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, map[string]bool{"added": added})
}

// UpdateEventWishlistEntry handles PATCH /api/v1/storefront/event-wishlist/entries/{entryId}.
func (h *StorefrontHandler) UpdateEventWishlistEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	var pref *domain.NotificationPreference
	if req.NotificationPreference != nil {
		p := domain.NotificationPreference(*req.NotificationPreference)
		pref = &p
	}
	if err := m.UpdateEventWishlistEntry(r.Context(), chi.URLParam(r, "entryId"), req.Notes, pref); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m, nil)
}
