// Package state owns the cart and wishlist state of one storefront session
// and reconciles optimistic local changes with the remote stores.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// Cart bounds.
const (
	// MaxQuantityPerItem is the maximum quantity of a single cart line.
	MaxQuantityPerItem = 100
	// MaxLinesPerCart is the maximum number of distinct products in a cart.
	MaxLinesPerCart = 50
)

// DefaultSignInPath is used when Deps.SignInPath is empty.
const DefaultSignInPath = "/auth/sign-in"

// SnapshotPublisher receives the confirmed cart after every cart mutation.
type SnapshotPublisher interface {
	PublishCartSnapshot(ctx context.Context, userID string, lines []domain.CartLine) error
}

// Deps are the collaborators shared by every Manager.
type Deps struct {
	Cart          repository.CartStore
	Wishlist      repository.WishlistStore
	EventWishlist repository.EventWishlistStore
	Guest         repository.GuestStore

	Sink      notify.Sink
	Snapshots SnapshotPublisher // optional
	Logger    *slog.Logger

	SignInPath string
	Now        func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Sink == nil {
		d.Sink = notify.Discard
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SignInPath == "" {
		d.SignInPath = DefaultSignInPath
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// State is a point-in-time view of a Manager, as rendered by the UI.
type State struct {
	Authenticated      bool                        `json:"authenticated"`
	CartItems          []domain.CartLine           `json:"cart_items"`
	WishlistItems      []domain.WishlistEntry      `json:"wishlist_items"`
	EventWishlistItems []domain.EventWishlistEntry `json:"event_wishlist_items"`
	TotalItems         int                         `json:"total_items"`
	TotalPrice         decimal.Decimal             `json:"total_price"`
	IsLoading          bool                        `json:"is_loading"`
	IsOpen             bool                        `json:"is_open"`
	InFlight           Flags                       `json:"in_flight"`
}

// Manager is the single owner of one session's cart, wishlist and event
// wishlist. All methods are safe for concurrent use. Concurrent mutations of
// the same collection are not serialized: the later-resolving refresh wins.
type Manager struct {
	mu       sync.RWMutex
	session  domain.Session
	cart     Collection[domain.CartLine]
	wishlist Collection[domain.WishlistEntry]
	events   Collection[domain.EventWishlistEntry]
	inFlight map[Operation]int
	loading  int
	open     bool

	deps    Deps
	logger  *slog.Logger
	tempSeq atomic.Int64
}

// NewManager creates an empty manager for session. Call Load to populate it.
func NewManager(session domain.Session, deps Deps) *Manager {
	deps = deps.withDefaults()
	return &Manager{
		session:  session,
		cart:     newCollection(domain.CartLine.Clone),
		wishlist: newCollection(func(e domain.WishlistEntry) domain.WishlistEntry { return e }),
		events:   newCollection(func(e domain.EventWishlistEntry) domain.EventWishlistEntry { return e }),
		inFlight: make(map[Operation]int),
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Session returns the session the manager belongs to.
func (m *Manager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// SetToken replaces the bearer token forwarded to the remote stores.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.session.Token = token
	m.mu.Unlock()
}

// Load populates the manager from its backing stores. Authenticated sessions
// fetch cart, wishlist and event wishlist concurrently; guest sessions read
// their wishlists from the guest store and have no cart.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loading++
	session := m.session
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading--
		m.mu.Unlock()
	}()

	if !session.Authenticated() {
		return m.loadGuest(ctx)
	}

	var (
		lines   []domain.CartLine
		entries []domain.WishlistEntry
		events  []domain.EventWishlistEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = m.deps.Cart.List(gctx, session)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = m.deps.Wishlist.List(gctx, session)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = m.deps.EventWishlist.List(gctx, session)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			m.notify(ctx, notify.Notification{
				Level:   notify.LevelDestructive,
				Title:   "Could not load your cart",
				Message: userMessage(err),
			})
		}
		return fmt.Errorf("load session state: %w", err)
	}

	m.mu.Lock()
	m.cart.set(lines)
	m.wishlist.set(entries)
	m.events.set(events)
	m.mu.Unlock()
	return nil
}

// Refresh re-reads every collection from the backing stores.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.Load(ctx)
}

// IsLoading reports whether a Load is in progress.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading > 0
}

// InFlight reports whether a mutation of kind op is awaiting the remote store.
func (m *Manager) InFlight(op Operation) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inFlight[op] > 0
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{
		Authenticated:      m.session.Authenticated(),
		CartItems:          m.cart.copyItems(),
		WishlistItems:      m.wishlist.copyItems(),
		EventWishlistItems: m.events.copyItems(),
		IsLoading:          m.loading > 0,
		IsOpen:             m.open,
		InFlight:           flagsFrom(m.inFlight),
	}
	st.TotalItems = m.totalItemsLocked()
	st.TotalPrice = m.totalPriceLocked()
	return st
}

func (m *Manager) track(op Operation, delta int) {
	m.mu.Lock()
	m.inFlight[op] += delta
	if m.inFlight[op] <= 0 {
		delete(m.inFlight, op)
	}
	m.mu.Unlock()
}

func (m *Manager) tempID() string {
	return fmt.Sprintf("tmp-%d-%d", m.deps.Now().UnixNano(), m.tempSeq.Add(1))
}

func (m *Manager) notify(ctx context.Context, n notify.Notification) {
	if err := m.deps.Sink.Notify(ctx, n); err != nil {
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "notification sink failed",
			slog.String("title", n.Title),
			slog.String("error", err.Error()),
		)
	}
}

// fail reports err through the notification sink and returns it. Expected
// conditions become informational notifications, anything else destructive.
// A sign-in redirect is not reported.
func (m *Manager) fail(ctx context.Context, op Operation, title string, err error, quiet bool) error {
	var signIn *SignInRequiredError
	if quiet || errors.As(err, &signIn) {
		return err
	}

	level := notify.LevelInfo
	if !apperrors.IsExpected(err) {
		level = notify.LevelDestructive
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "mutation failed",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
	}
	m.notify(ctx, notify.Notification{
		Level:     level,
		Title:     title,
		Message:   userMessage(err),
		Operation: string(op),
	})
	return err
}

// userMessage returns text that is safe to show to the shopper.
func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < 500 {
		return appErr.Message
	}
	if errors.Is(err, apperrors.ErrServiceUnavail) {
		return "The store is temporarily unavailable. Please try again."
	}
	return "Something went wrong. Please try again."
}

func (m *Manager) signInRequired(returnTo string) error {
	return &SignInRequiredError{SignInPath: m.deps.SignInPath, ReturnTo: returnTo}
}
