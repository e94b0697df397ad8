// Package gateway composes the remote store and the device snapshots into
// one repository per document family. Reads prefer the remote store and
// fall back to the user's snapshot; writes go to the remote store first and
// always land in the user's snapshot.
package gateway

import (
	"context"
	"log/slog"

	"foco/internal/core"
	"foco/internal/device"
	applog "foco/internal/log"
	"foco/internal/remote"
)

// Record is a validated, identifiable document.
type Record interface {
	device.Record
	Validate() error
}

// Collection is the remote side of one document family.
type Collection[T Record] interface {
	List(ctx context.Context, uid string) ([]T, error)
	Put(ctx context.Context, uid string, rec T) error
	Delete(ctx context.Context, uid, id string) error
}

func logger() *slog.Logger {
	return slog.Default().With(applog.FieldComponent, applog.ComponentGateway)
}

type Repository[T Record] struct {
	kind   string
	remote Collection[T]
	local  *device.Snapshots[T]
	locks  *keyLock
}

// NewRepository builds a repository. A nil remote makes it local-only.
func NewRepository[T Record](kind string, remote Collection[T], local *device.Snapshots[T]) *Repository[T] {
	return &Repository[T]{kind: kind, remote: remote, local: local, locks: newKeyLock()}
}

func (r *Repository[T]) online(uid string) bool {
	return uid != "" && r.remote != nil
}

// List returns the user's records. Without a user or a remote store it
// returns the snapshot. A successful remote read replaces the snapshot; a
// failed one is logged and answered from the snapshot.
func (r *Repository[T]) List(ctx context.Context, uid string) []T {
	snap := r.local.For(uid)
	if !r.online(uid) {
		return snap.Load()
	}
	items, err := r.remote.List(ctx, uid)
	if err != nil {
		logger().WarnContext(ctx, "Remote list failed, serving device snapshot",
			"kind", r.kind, "error", err)
		return snap.Load()
	}
	if items == nil {
		items = []T{}
	}
	snap.Replace(items)
	return items
}

// Cached returns the user's snapshot without touching the remote store.
func (r *Repository[T]) Cached(uid string) []T {
	return r.local.For(uid).Load()
}

// Find looks id up through List.
func (r *Repository[T]) Find(ctx context.Context, uid, id string) (T, error) {
	for _, it := range r.List(ctx, uid) {
		if it.RecordID() == id {
			return it, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// Save validates rec, writes it remotely when a user is signed in, then
// upserts the snapshot. A remote failure is returned as *WriteError after
// the snapshot was updated.
func (r *Repository[T]) Save(ctx context.Context, uid string, rec T) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	unlock := r.locks.Lock(rec.RecordID())
	defer unlock()
	return r.save(ctx, uid, rec)
}

func (r *Repository[T]) save(ctx context.Context, uid string, rec T) error {
	var werr error
	if r.online(uid) {
		if err := r.remote.Put(ctx, uid, rec); err != nil {
			logger().WarnContext(ctx, "Remote save failed, change kept on device",
				"kind", r.kind, "id", rec.RecordID(), "error", err)
			werr = &WriteError{Op: "save " + r.kind, ID: rec.RecordID(), Err: err}
		}
	}
	r.local.For(uid).Upsert(rec)
	return werr
}

// Delete removes id remotely when a user is signed in and from the snapshot
// regardless.
func (r *Repository[T]) Delete(ctx context.Context, uid, id string) error {
	if id == "" {
		return core.ErrEmptyID
	}
	unlock := r.locks.Lock(id)
	defer unlock()
	return r.delete(ctx, uid, id)
}

func (r *Repository[T]) delete(ctx context.Context, uid, id string) error {
	var werr error
	if r.online(uid) {
		if err := r.remote.Delete(ctx, uid, id); err != nil {
			logger().WarnContext(ctx, "Remote delete failed, removed from device only",
				"kind", r.kind, "id", id, "error", err)
			werr = &WriteError{Op: "delete " + r.kind, ID: id, Err: err}
		}
	}
	r.local.For(uid).Remove(id)
	return werr
}

type transactionCollection struct {
	store remote.TransactionStore
}

func (c transactionCollection) List(ctx context.Context, uid string) ([]core.Transaction, error) {
	return c.store.ListTransactions(ctx, uid)
}

func (c transactionCollection) Put(ctx context.Context, uid string, tx core.Transaction) error {
	return c.store.PutTransaction(ctx, uid, tx)
}

func (c transactionCollection) Delete(ctx context.Context, uid, id string) error {
	return c.store.DeleteTransaction(ctx, uid, id)
}

type ledgerCollection struct {
	store remote.LedgerStore
}

func (c ledgerCollection) List(ctx context.Context, uid string) ([]core.Ledger, error) {
	return c.store.ListLedgers(ctx, uid)
}

func (c ledgerCollection) Put(ctx context.Context, uid string, l core.Ledger) error {
	return c.store.PutLedger(ctx, uid, l)
}

func (c ledgerCollection) Delete(ctx context.Context, uid, id string) error {
	return c.store.DeleteLedger(ctx, uid, id)
}
