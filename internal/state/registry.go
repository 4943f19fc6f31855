package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// MergeResult summarizes a guest to account merge.
type MergeResult struct {
	Wishlist      int `json:"wishlist"`
	EventWishlist int `json:"event_wishlist"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
}

type session struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry holds one Manager per session key, creating and loading it on
// first use and evicting it once idle for longer than the TTL.
type Registry struct {
	deps  Deps
	ttl   time.Duration
	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]*session
	nowFunc  func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewRegistry creates a registry. A positive idleTTL starts a background
// sweep; call Close to stop it.
func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	deps = deps.withDefaults()
	r := &Registry{
		deps:     deps,
		ttl:      idleTTL,
		sessions: make(map[string]*session),
		nowFunc:  deps.Now,
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 {
		go r.sweepLoop(idleTTL)
	}
	return r
}

// Get returns the manager for s, loading it when it is not held yet.
// Concurrent first requests for the same session share a single load.
func (r *Registry) Get(ctx context.Context, s domain.Session) (*Manager, error) {
	key := s.Key()
	if m := r.lookup(key); m != nil {
		m.SetToken(s.Token)
		return m, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if m := r.lookup(key); m != nil {
			return m, nil
		}
		m := NewManager(s, r.deps)
		// Shared by every waiter, so it must outlive the first caller.
		if err := m.Load(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		r.put(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	m := v.(*Manager)
	m.SetToken(s.Token)
	return m, nil
}

func (r *Registry) lookup(key string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[key]
	if !ok {
		return nil
	}
	sess.lastSeen = r.nowFunc()
	return sess.manager
}

func (r *Registry) put(key string, m *Manager) {
	r.mu.Lock()
	r.sessions[key] = &session{manager: m, lastSeen: r.nowFunc()}
	activeSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()
}

func (r *Registry) forget(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	activeSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()
}

// SignIn moves a guest's saved products and events into the account of the
// authenticated session s. Items the account already holds are skipped. The
// guest keys are deleted only when every item was merged, so a partial
// failure can be retried by signing in again.
func (r *Registry) SignIn(ctx context.Context, guestID string, s domain.Session) (*Manager, MergeResult, error) {
	var res MergeResult
	if !s.Authenticated() {
		return nil, res, apperrors.Unauthorized("sign in required")
	}

	user, err := r.Get(ctx, s)
	if err != nil {
		return nil, res, fmt.Errorf("load account state: %w", err)
	}
	if guestID == "" {
		return user, res, nil
	}

	guest := NewManager(domain.Session{GuestID: guestID}, r.deps)
	products, err := guest.guestProductIDs(ctx)
	if err != nil {
		return user, res, fmt.Errorf("read guest wishlist: %w", err)
	}
	events, err := guest.guestEventIDs(ctx)
	if err != nil {
		return user, res, fmt.Errorf("read guest event wishlist: %w", err)
	}

	var errs error
	for _, id := range products {
		if user.IsInWishlist(id) {
			res.Skipped++
			continue
		}
		switch err := user.addToWishlist(ctx, id, true); {
		case err == nil:
			res.Wishlist++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			res.Skipped++
		default:
			res.Failed++
			errs = multierr.Append(errs, err)
		}
	}
	for _, id := range events {
		if user.IsEventInWishlist(id) {
			res.Skipped++
			continue
		}
		switch err := user.addEventToWishlist(ctx, id, domain.NotifyAll, true); {
		case err == nil:
			res.EventWishlist++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			res.Skipped++
		default:
			res.Failed++
			errs = multierr.Append(errs, err)
		}
	}

	log := logger.WithContext(ctx, r.deps.Logger)
	if errs != nil {
		log.WarnContext(ctx, "guest merge incomplete, keeping guest data",
			slog.String("guest_id", guestID),
			slog.Int("failed", res.Failed),
			slog.String("error", errs.Error()),
		)
		user.notify(ctx, notify.Notification{
			Level:   notify.LevelDestructive,
			Title:   "Some saved items could not be moved",
			Message: userMessage(errs),
		})
		return user, res, nil
	}

	if err := r.deps.Guest.Delete(ctx, repository.GuestWishlistKey(guestID), repository.GuestEventWishlistKey(guestID)); err != nil {
		log.WarnContext(ctx, "failed to delete guest data after merge",
			slog.String("guest_id", guestID),
			slog.String("error", err.Error()),
		)
	}
	r.forget(guest.Session().Key())

	if merged := res.Wishlist + res.EventWishlist; merged > 0 {
		user.notify(ctx, notify.Notification{
			Level:   notify.LevelSuccess,
			Title:   "Saved items moved to your account",
			Message: fmt.Sprintf("%d saved item(s) were added to your account.", merged),
		})
	}
	log.InfoContext(ctx, "guest merged into account",
		slog.String("guest_id", guestID),
		slog.Int("wishlist", res.Wishlist),
		slog.Int("event_wishlist", res.EventWishlist),
		slog.Int("skipped", res.Skipped),
	)
	return user, res, nil
}

// Sweep evicts managers idle for longer than the TTL and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	evicted := 0
	for key, sess := range r.sessions {
		if now.Sub(sess.lastSeen) > r.ttl {
			delete(r.sessions, key)
			evicted++
		}
	}
	activeSessions.Set(float64(len(r.sessions)))
	return evicted
}

// Len returns the number of managers held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.deps.Logger.Debug("evicted idle sessions", slog.Int("count", n))
			}
		case <-r.stop:
			return
		}
	}
}

// Close stops the background sweep.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
}
