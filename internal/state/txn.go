package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/tracing"
)

var tracer = tracing.Tracer("state")

// Collection is an ordered list of entries owned by a Manager. Every method
// expects the owner's lock to be held. Stored slices are replaced, never
// modified in place, so a slice handed out stays stable.
type Collection[T any] struct {
	items []T
	clone func(T) T
	// gen counts confirmed writes: loads, commits and reconciliations.
	gen uint64
}

func newCollection[T any](clone func(T) T) Collection[T] {
	return Collection[T]{items: []T{}, clone: clone}
}

// copyItems returns a deep copy of the stored items.
func (c *Collection[T]) copyItems() []T {
	out := make([]T, len(c.items))
	for i := range c.items {
		out[i] = c.clone(c.items[i])
	}
	return out
}

// set stores a confirmed state.
func (c *Collection[T]) set(items []T) {
	c.replace(items)
	c.gen++
}

// replace stores items without marking them confirmed.
func (c *Collection[T]) replace(items []T) {
	if items == nil {
		items = []T{}
	}
	c.items = items
}

// Transaction is a single optimistic mutation of a Collection. It is opened
// by begin, which snapshots the collection and applies the speculative
// change, and is closed by exactly one of Commit, Reconcile or Revert.
type Transaction[T any] struct {
	mu     sync.Locker
	coll   *Collection[T]
	before []T
	gen    uint64
}

// begin snapshots coll and replaces it with apply's result. When apply fails
// the collection is left untouched and no transaction is opened.
func begin[T any](mu sync.Locker, coll *Collection[T], apply func(items []T) ([]T, error)) (*Transaction[T], error) {
	mu.Lock()
	defer mu.Unlock()

	before := coll.copyItems()
	next, err := apply(coll.copyItems())
	if err != nil {
		return nil, err
	}
	coll.replace(next)
	return &Transaction[T]{mu: mu, coll: coll, before: before, gen: coll.gen}, nil
}

// Commit replaces the collection with the authoritative items.
func (tx *Transaction[T]) Commit(items []T) {
	tx.mu.Lock()
	tx.coll.set(items)
	tx.mu.Unlock()
}

// Reconcile patches the current collection with fn and returns the result.
func (tx *Transaction[T]) Reconcile(fn func(current []T) []T) []T {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.coll.set(fn(tx.coll.copyItems()))
	return tx.coll.items
}

// Revert undoes the transaction. The snapshot taken by begin is restored
// unless another state was confirmed since then, in which case the snapshot
// is stale and the collection is re-read with refresh instead. The snapshot
// remains the fallback when refresh fails; its error is returned.
func (tx *Transaction[T]) Revert(ctx context.Context, refresh func(ctx context.Context) ([]T, error)) error {
	tx.mu.Lock()
	if tx.coll.gen == tx.gen || refresh == nil {
		tx.coll.replace(tx.before)
		tx.mu.Unlock()
		return nil
	}
	tx.mu.Unlock()

	items, err := refresh(ctx)

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err != nil {
		tx.coll.replace(tx.before)
		return err
	}
	tx.coll.set(items)
	return nil
}

// mutation describes one remote-backed change to a collection.
type mutation[T any, R any] struct {
	op         Operation
	collection string
	coll       *Collection[T]

	// apply computes the speculative state. An error rejects the mutation
	// before anything is sent.
	apply func(items []T) ([]T, error)
	// remote performs the mutation against the authoritative store.
	remote func(ctx context.Context) (R, error)
	// refresh re-reads the collection after a successful remote call.
	refresh func(ctx context.Context) ([]T, error)
	// reconcile folds the remote response into the speculative state when
	// refresh fails.
	reconcile func(items []T, result R) []T
	// mapErr rewrites remote errors, e.g. to a friendlier message.
	mapErr func(error) error
	// onCommit runs after the collection holds its confirmed state.
	onCommit func(ctx context.Context, items []T)

	success   notify.Notification
	failTitle string
	quiet     bool
}

// execute runs the optimistic protocol: snapshot and apply, call the remote
// store, then refresh on success or revert on failure. Every remote-backed
// mutation of the manager goes through here.
func execute[T any, R any](ctx context.Context, m *Manager, mt mutation[T, R]) (R, error) {
	var zero R

	// A mutation runs to completion even when the caller stops waiting.
	ctx = context.WithoutCancel(ctx)

	ctx, span := tracer.Start(ctx, mt.collection+"."+string(mt.op),
		trace.WithAttributes(
			attribute.String("storefront.collection", mt.collection),
			attribute.String("storefront.operation", string(mt.op)),
			attribute.Bool("storefront.authenticated", m.Session().Authenticated()),
		),
	)
	defer span.End()

	tx, err := begin(&m.mu, mt.coll, mt.apply)
	if err != nil {
		optimisticMutations.WithLabelValues(mt.collection, string(mt.op), outcomeRejected).Inc()
		span.SetStatus(codes.Error, err.Error())
		return zero, m.fail(ctx, mt.op, mt.failTitle, err, mt.quiet)
	}

	m.track(mt.op, 1)
	defer m.track(mt.op, -1)

	start := time.Now()
	result, err := mt.remote(ctx)
	remoteMutationDuration.WithLabelValues(mt.collection, string(mt.op)).Observe(time.Since(start).Seconds())
	if err != nil {
		if rerr := tx.Revert(ctx, mt.refresh); rerr != nil {
			logger.WithContext(ctx, m.logger).WarnContext(ctx, "refresh after failed mutation failed, restored snapshot",
				slog.String("collection", mt.collection),
				slog.String("operation", string(mt.op)),
				slog.String("error", rerr.Error()),
			)
		}
		if mt.mapErr != nil {
			err = mt.mapErr(err)
		}
		optimisticMutations.WithLabelValues(mt.collection, string(mt.op), outcomeReverted).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "reverted")
		return zero, m.fail(ctx, mt.op, mt.failTitle, err, mt.quiet)
	}

	outcome := outcomeCommitted
	items, err := mt.refresh(ctx)
	if err != nil {
		outcome = outcomeReconciled
		logger.WithContext(ctx, m.logger).WarnContext(ctx, "refresh after mutation failed, reconciling from response",
			slog.String("collection", mt.collection),
			slog.String("operation", string(mt.op)),
			slog.String("error", err.Error()),
		)
		items = tx.Reconcile(func(current []T) []T {
			return mt.reconcile(current, result)
		})
	} else {
		tx.Commit(items)
	}
	optimisticMutations.WithLabelValues(mt.collection, string(mt.op), outcome).Inc()
	span.SetAttributes(attribute.String("storefront.outcome", outcome))

	if mt.onCommit != nil {
		mt.onCommit(ctx, items)
	}
	if !mt.quiet {
		n := mt.success
		n.Level = notify.LevelSuccess
		n.Operation = string(mt.op)
		m.notify(ctx, n)
	}
	return result, nil
}
