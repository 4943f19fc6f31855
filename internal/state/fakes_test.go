package state

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository"
	redisrepo "github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository/redis"
	apperrors "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/errors"
)

// --- Fake stores ---

// fakeCartStore is an in-memory cart store with per-method error injection.
type fakeCartStore struct {
	mu     sync.Mutex
	lines  []domain.CartLine
	nextID int
	calls  map[string]int

	addErr, updateErr, removeErr, clearErr, listErr error
	// gate, when set, blocks every mutation until it is closed.
	gate chan struct{}
	// holdProducts blocks Add for a product until its channel is closed;
	// failProducts makes Add fail for a product.
	holdProducts map[int64]chan struct{}
	failProducts map[int64]error
}

func newFakeCartStore(lines ...domain.CartLine) *fakeCartStore {
	return &fakeCartStore{lines: lines, nextID: 100, calls: make(map[string]int)}
}

func (f *fakeCartStore) wait() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeCartStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeCartStore) List(_ context.Context, _ domain.Session) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["List"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.CartLine, len(f.lines))
	for i := range f.lines {
		out[i] = f.lines[i].Clone()
	}
	return out, nil
}

func (f *fakeCartStore) Add(_ context.Context, _ domain.Session, in repository.NewCartLine) (*domain.CartLine, error) {
	f.wait()
	f.mu.Lock()
	hold := f.holdProducts[in.ProductID]
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Add"]++
	if f.addErr != nil {
		return nil, f.addErr
	}
	if err := f.failProducts[in.ProductID]; err != nil {
		return nil, err
	}
	if i := domain.FindProductIndex(f.lines, in.ProductID); i >= 0 {
		f.lines[i].Quantity += in.Quantity
		if in.Customization != nil {
			f.lines[i].Customization = in.Customization
		}
		line := f.lines[i].Clone()
		return &line, nil
	}
	f.nextID++
	line := domain.CartLine{
		ID:            "line-" + strconv.Itoa(f.nextID),
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		Customization: in.Customization,
		Product:       &domain.ProductSnapshot{ID: in.ProductID, Name: fmt.Sprintf("Product %d", in.ProductID), Price: "10.00"},
	}
	f.lines = append(f.lines, line)
	out := line.Clone()
	return &out, nil
}

func (f *fakeCartStore) UpdateQuantity(_ context.Context, _ domain.Session, lineID string, quantity int) (*domain.CartLine, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateQuantity"]++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	i := domain.FindLineIndex(f.lines, lineID)
	if i < 0 {
		return nil, apperrors.NotFound("cart line", lineID)
	}
	if quantity <= 0 {
		f.lines = slices.Delete(f.lines, i, i+1)
		return nil, nil
	}
	f.lines[i].Quantity = quantity
	line := f.lines[i].Clone()
	return &line, nil
}

func (f *fakeCartStore) Remove(_ context.Context, _ domain.Session, lineID string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Remove"]++
	if f.removeErr != nil {
		return f.removeErr
	}
	i := domain.FindLineIndex(f.lines, lineID)
	if i < 0 {
		return apperrors.NotFound("cart line", lineID)
	}
	f.lines = slices.Delete(f.lines, i, i+1)
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, _ domain.Session) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Clear"]++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.lines = nil
	return nil
}

// fakeWishlistStore is an in-memory product wishlist.
type fakeWishlistStore struct {
	mu      sync.Mutex
	entries []domain.WishlistEntry
	nextID  int
	calls   map[string]int

	addErr, removeErr, listErr error
	// failProducts makes Add fail for the listed product ids.
	failProducts map[int64]error
}

func newFakeWishlistStore(entries ...domain.WishlistEntry) *fakeWishlistStore {
	return &fakeWishlistStore{entries: entries, nextID: 500, calls: make(map[string]int)}
}

func (f *fakeWishlistStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeWishlistStore) List(_ context.Context, _ domain.Session) ([]domain.WishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["List"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.entries), nil
}

func (f *fakeWishlistStore) Add(_ context.Context, s domain.Session, productID int64) (*domain.WishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Add"]++
	if f.addErr != nil {
		return nil, f.addErr
	}
	if err := f.failProducts[productID]; err != nil {
		return nil, err
	}
	if findProductEntry(f.entries, productID) >= 0 {
		return nil, apperrors.AlreadyExists("wishlist entry", "product_id", strconv.FormatInt(productID, 10))
	}
	f.nextID++
	e := domain.WishlistEntry{
		ID:        "wl-" + strconv.Itoa(f.nextID),
		ProductID: productID,
		OwnerID:   s.UserID,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.entries = append(f.entries, e)
	return &e, nil
}

func (f *fakeWishlistStore) Remove(_ context.Context, _ domain.Session, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Remove"]++
	if f.removeErr != nil {
		return f.removeErr
	}
	i := findProductEntry(f.entries, productID)
	if i < 0 {
		return apperrors.NotFound("wishlist entry", strconv.FormatInt(productID, 10))
	}
	f.entries = slices.Delete(f.entries, i, i+1)
	return nil
}

func (f *fakeWishlistStore) UpdateNotes(_ context.Context, _ domain.Session, entryID, notes string) (*domain.WishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateNotes"]++
	i := findWishlistEntry(f.entries, entryID)
	if i < 0 {
		return nil, apperrors.NotFound("wishlist entry", entryID)
	}
	f.entries[i].Notes = notes
	e := f.entries[i]
	return &e, nil
}

// fakeEventWishlistStore is an in-memory event wishlist.
type fakeEventWishlistStore struct {
	mu      sync.Mutex
	entries []domain.EventWishlistEntry
	nextID  int
	calls   map[string]int

	addErr, removeErr, updateErr error
}

func newFakeEventWishlistStore(entries ...domain.EventWishlistEntry) *fakeEventWishlistStore {
	return &fakeEventWishlistStore{entries: entries, nextID: 900, calls: make(map[string]int)}
}

func (f *fakeEventWishlistStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeEventWishlistStore) List(_ context.Context, _ domain.Session) ([]domain.EventWishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["List"]++
	return slices.Clone(f.entries), nil
}

func (f *fakeEventWishlistStore) Add(_ context.Context, s domain.Session, eventID string, pref domain.NotificationPreference) (*domain.EventWishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Add"]++
	if f.addErr != nil {
		return nil, f.addErr
	}
	if findEvent(f.entries, eventID) >= 0 {
		return nil, apperrors.AlreadyExists("event wishlist entry", "event_id", eventID)
	}
	f.nextID++
	e := domain.EventWishlistEntry{
		ID:                     "ev-" + strconv.Itoa(f.nextID),
		EventID:                eventID,
		OwnerID:                s.UserID,
		NotificationPreference: pref,
	}
	f.entries = append(f.entries, e)
	return &e, nil
}

func (f *fakeEventWishlistStore) Remove(_ context.Context, _ domain.Session, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Remove"]++
	if f.removeErr != nil {
		return f.removeErr
	}
	i := findEvent(f.entries, eventID)
	if i < 0 {
		return apperrors.NotFound("event wishlist entry", eventID)
	}
	f.entries = slices.Delete(f.entries, i, i+1)
	return nil
}

func (f *fakeEventWishlistStore) Update(_ context.Context, _ domain.Session, entryID string, upd repository.EventWishlistUpdate) (*domain.EventWishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Update"]++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	i := findEventEntry(f.entries, entryID)
	if i < 0 {
		return nil, apperrors.NotFound("event wishlist entry", entryID)
	}
	if upd.Notes != nil {
		f.entries[i].Notes = *upd.Notes
	}
	if upd.NotificationPreference != nil {
		f.entries[i].NotificationPreference = *upd.NotificationPreference
	}
	e := f.entries[i]
	return &e, nil
}

// --- Mock snapshot publisher ---

type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) PublishCartSnapshot(ctx context.Context, userID string, lines []domain.CartLine) error {
	args := m.Called(ctx, userID, lines)
	return args.Error(0)
}

// --- Test Helpers ---

var (
	testUser  = domain.Session{UserID: "user-1", Token: "token-1"}
	testGuest = domain.Session{GuestID: "guest-abc"}
)

type harness struct {
	cart     *fakeCartStore
	wishlist *fakeWishlistStore
	events   *fakeEventWishlistStore
	guest    *redisrepo.GuestStore
	redis    *miniredis.Miniredis
	rec      *notify.Recorder
	deps     Deps
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		cart:     newFakeCartStore(),
		wishlist: newFakeWishlistStore(),
		events:   newFakeEventWishlistStore(),
		guest:    redisrepo.NewGuestStore(client, 24*time.Hour),
		redis:    mr,
		rec:      notify.NewRecorder(),
	}
	h.deps = Deps{
		Cart:          h.cart,
		Wishlist:      h.wishlist,
		EventWishlist: h.events,
		Guest:         h.guest,
		Sink:          h.rec,
		Logger:        newTestLogger(),
	}
	return h
}

// manager returns a loaded manager for s.
func (h *harness) manager(t *testing.T, s domain.Session) *Manager {
	t.Helper()
	m := NewManager(s, h.deps)
	require.NoError(t, m.Load(context.Background()))
	return m
}

func cartLine(id string, productID int64, qty int, price domain.Price) domain.CartLine {
	return domain.CartLine{
		ID:        id,
		ProductID: productID,
		Quantity:  qty,
		Product:   &domain.ProductSnapshot{ID: productID, Name: "Gift Box", Price: price},
	}
}

func lastLevel(t *testing.T, rec *notify.Recorder) notify.Level {
	t.Helper()
	n, ok := rec.Last()
	require.True(t, ok, "expected a notification")
	return n.Level
}
