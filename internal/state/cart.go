package state

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID     int64
	Quantity      int
	Customization *domain.Customization
	// Product is the display snapshot shown until the store confirms the line.
	Product *domain.ProductSnapshot
	// ReturnTo is where a guest lands after signing in.
	ReturnTo string
}

// LineRef identifies the cart line an add resolved to.
type LineRef struct {
	ID        string `json:"id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartItems returns a copy of the cart lines.
func (m *Manager) CartItems() []domain.CartLine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cart.copyItems()
}

// TotalItems returns the sum of line quantities, 0 for guests.
func (m *Manager) TotalItems() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalItemsLocked()
}

// TotalPrice returns the sum of price times quantity over the cached product
// snapshots. Lines with a missing or malformed price contribute 0.
func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPriceLocked()
}

func (m *Manager) totalItemsLocked() int {
	if !m.session.Authenticated() {
		return 0
	}
	total := 0
	for i := range m.cart.items {
		if q := m.cart.items[i].Quantity; q > 0 {
			total += q
		}
	}
	return total
}

func (m *Manager) totalPriceLocked() decimal.Decimal {
	total := decimal.Zero
	if !m.session.Authenticated() {
		return total
	}
	for i := range m.cart.items {
		if m.cart.items[i].Quantity > 0 {
			total = total.Add(m.cart.items[i].Subtotal())
		}
	}
	return total
}

// AddItem adds quantity of a product to the cart, merging into the existing
// line when the product is already present. Guests get a *SignInRequiredError.
func (m *Manager) AddItem(ctx context.Context, in AddItemInput) (LineRef, error) {
	session := m.Session()
	if !session.Authenticated() {
		return LineRef{}, m.signInRequired(in.ReturnTo)
	}
	if in.Quantity < 1 {
		return LineRef{}, m.fail(ctx, OpAddToCart, "Could not add to cart",
			apperrors.InvalidInput("quantity must be at least 1"), false)
	}

	tempID := m.tempID()
	line, err := execute(ctx, m, mutation[domain.CartLine, *domain.CartLine]{
		op:         OpAddToCart,
		collection: collectionCart,
		coll:       &m.cart,
		apply: func(lines []domain.CartLine) ([]domain.CartLine, error) {
			if i := domain.FindProductIndex(lines, in.ProductID); i >= 0 {
				qty := lines[i].Quantity + in.Quantity
				if qty > MaxQuantityPerItem {
					return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d per item", MaxQuantityPerItem))
				}
				lines[i].Quantity = qty
				if in.Customization != nil {
					lines[i].Customization = in.Customization
				}
				return lines, nil
			}
			if in.Quantity > MaxQuantityPerItem {
				return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d per item", MaxQuantityPerItem))
			}
			if len(lines) >= MaxLinesPerCart {
				return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d products", MaxLinesPerCart))
			}
			pending := domain.CartLine{
				ID:            tempID,
				ProductID:     in.ProductID,
				Quantity:      in.Quantity,
				Customization: in.Customization,
				Product:       in.Product,
			}
			return append(lines, pending.Clone()), nil
		},
		remote: func(ctx context.Context) (*domain.CartLine, error) {
			return m.deps.Cart.Add(ctx, session, repository.NewCartLine{
				ProductID:     in.ProductID,
				Quantity:      in.Quantity,
				Customization: in.Customization,
			})
		},
		refresh: func(ctx context.Context) ([]domain.CartLine, error) {
			return m.deps.Cart.List(ctx, session)
		},
		reconcile: func(lines []domain.CartLine, confirmed *domain.CartLine) []domain.CartLine {
			return replaceLine(lines, domain.FindProductIndex(lines, in.ProductID), confirmed)
		},
		onCommit:  m.publishSnapshot,
		success:   notify.Notification{Title: "Added to cart"},
		failTitle: "Could not add to cart",
	})
	if err != nil {
		return LineRef{}, err
	}

	ref := LineRef{ID: line.ID, ProductID: line.ProductID, Quantity: line.Quantity}
	if ref.ProductID == 0 {
		ref.ProductID = in.ProductID
	}
	return ref, nil
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line, exactly as RemoveItem does.
func (m *Manager) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, lineID)
	}
	session := m.Session()
	if !session.Authenticated() {
		return m.signInRequired("")
	}

	_, err := execute(ctx, m, mutation[domain.CartLine, *domain.CartLine]{
		op:         OpUpdateQuantity,
		collection: collectionCart,
		coll:       &m.cart,
		apply: func(lines []domain.CartLine) ([]domain.CartLine, error) {
			if quantity > MaxQuantityPerItem {
				return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d per item", MaxQuantityPerItem))
			}
			i := domain.FindLineIndex(lines, lineID)
			if i < 0 {
				return nil, apperrors.NotIn("cart", "line", lineID)
			}
			lines[i].Quantity = quantity
			return lines, nil
		},
		remote: func(ctx context.Context) (*domain.CartLine, error) {
			return m.deps.Cart.UpdateQuantity(ctx, session, lineID, quantity)
		},
		refresh: func(ctx context.Context) ([]domain.CartLine, error) {
			return m.deps.Cart.List(ctx, session)
		},
		reconcile: func(lines []domain.CartLine, confirmed *domain.CartLine) []domain.CartLine {
			return replaceLine(lines, domain.FindLineIndex(lines, lineID), confirmed)
		},
		onCommit:  m.publishSnapshot,
		success:   notify.Notification{Title: "Cart updated"},
		failTitle: "Could not update quantity",
	})
	return err
}

// RemoveItem deletes a line from the cart.
func (m *Manager) RemoveItem(ctx context.Context, lineID string) error {
	session := m.Session()
	if !session.Authenticated() {
		return m.signInRequired("")
	}

	_, err := execute(ctx, m, mutation[domain.CartLine, struct{}]{
		op:         OpRemoveItem,
		collection: collectionCart,
		coll:       &m.cart,
		apply: func(lines []domain.CartLine) ([]domain.CartLine, error) {
			i := domain.FindLineIndex(lines, lineID)
			if i < 0 {
				return nil, apperrors.NotIn("cart", "line", lineID)
			}
			return append(lines[:i], lines[i+1:]...), nil
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.deps.Cart.Remove(ctx, session, lineID)
		},
		refresh: func(ctx context.Context) ([]domain.CartLine, error) {
			return m.deps.Cart.List(ctx, session)
		},
		reconcile: func(lines []domain.CartLine, _ struct{}) []domain.CartLine {
			if i := domain.FindLineIndex(lines, lineID); i >= 0 {
				lines = append(lines[:i], lines[i+1:]...)
			}
			return lines
		},
		onCommit:  m.publishSnapshot,
		success:   notify.Notification{Title: "Removed from cart"},
		failTitle: "Could not remove item",
	})
	return err
}

// ClearCart removes every line. The cart reads as empty immediately; a
// failure restores the full prior list.
func (m *Manager) ClearCart(ctx context.Context) error {
	session := m.Session()
	if !session.Authenticated() {
		return m.signInRequired("")
	}

	_, err := execute(ctx, m, mutation[domain.CartLine, struct{}]{
		op:         OpClearCart,
		collection: collectionCart,
		coll:       &m.cart,
		apply: func([]domain.CartLine) ([]domain.CartLine, error) {
			return []domain.CartLine{}, nil
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.deps.Cart.Clear(ctx, session)
		},
		refresh: func(ctx context.Context) ([]domain.CartLine, error) {
			return m.deps.Cart.List(ctx, session)
		},
		reconcile: func([]domain.CartLine, struct{}) []domain.CartLine {
			return []domain.CartLine{}
		},
		onCommit:  m.publishSnapshot,
		success:   notify.Notification{Title: "Cart cleared"},
		failTitle: "Could not clear cart",
	})
	return err
}

// replaceLine swaps the line at i for the confirmed one, keeping the display
// snapshot when the store did not send one. A nil confirmed line means the
// store removed it.
func replaceLine(lines []domain.CartLine, i int, confirmed *domain.CartLine) []domain.CartLine {
	if i < 0 {
		if confirmed != nil {
			lines = append(lines, confirmed.Clone())
		}
		return lines
	}
	if confirmed == nil {
		return append(lines[:i], lines[i+1:]...)
	}
	next := confirmed.Clone()
	if next.Product == nil {
		next.Product = lines[i].Product
	}
	if next.Customization == nil {
		next.Customization = lines[i].Customization
	}
	lines[i] = next
	return lines
}

func (m *Manager) publishSnapshot(ctx context.Context, lines []domain.CartLine) {
	if m.deps.Snapshots == nil {
		return
	}
	session := m.Session()
	if err := m.deps.Snapshots.PublishCartSnapshot(ctx, session.UserID, lines); err != nil {
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "failed to publish cart snapshot",
			slog.String("error", err.Error()),
		)
	}
}
