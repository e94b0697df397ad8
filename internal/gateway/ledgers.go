package gateway

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"foco/internal/core"
	"foco/internal/device"
	"foco/internal/remote"
)

// ShadowPublisher asks an out-of-process worker to bring a public shadow in
// line with its owner copy.
type ShadowPublisher interface {
	PublishShadowReconcile(ctx context.Context, uid, ledgerID, slug string) error
}

// sharedLedger is a public shadow kept on the device, keyed by slug.
type sharedLedger struct {
	core.PublicLedger
}

func (s sharedLedger) RecordID() string { return s.PublicSlug }

// Ledgers is the ledger repository plus upkeep of the public shadows.
// The owner copy is always written first; the shadow follows only when the
// owner write succeeded. A slug belongs to the owner of its shadow and is
// never written over by another user.
type Ledgers struct {
	repo      *Repository[core.Ledger]
	shared    *device.Snapshot[sharedLedger]
	owners    remote.LedgerStore
	public    remote.PublicLedgerStore
	publisher ShadowPublisher
	onChange  func(slug string)
}

func (g *Ledgers) List(ctx context.Context, uid string) []core.Ledger {
	return g.repo.List(ctx, uid)
}

func (g *Ledgers) Cached(uid string) []core.Ledger {
	return g.repo.Cached(uid)
}

// Get returns the ledger with id, or ErrNotFound.
func (g *Ledgers) Get(ctx context.Context, uid, id string) (core.Ledger, error) {
	return g.repo.Find(ctx, uid, id)
}

// Save stores l and then creates or removes its public shadow according to
// PublicReadEnabled. A shadow failure is reported as ErrShadowSync and a
// reconcile is requested. Sharing under a slug owned by someone else fails
// with core.ErrSlugTaken before anything is written.
func (g *Ledgers) Save(ctx context.Context, uid string, l core.Ledger) error {
	if err := l.Validate(); err != nil {
		return err
	}
	unlock := g.repo.locks.Lock(l.ID)
	defer unlock()
	return g.save(ctx, uid, l)
}

// Update reads ledger id, applies fn to a copy and saves the result while
// holding the ledger's lock. The stored ledger is returned when fn or the
// validation fails; after a failed save the new ledger is returned along
// with the error since the device kept it.
func (g *Ledgers) Update(ctx context.Context, uid, id string, fn func(core.Ledger) (core.Ledger, error)) (core.Ledger, error) {
	unlock := g.repo.locks.Lock(id)
	defer unlock()

	cur, err := g.repo.Find(ctx, uid, id)
	if err != nil {
		return core.Ledger{}, err
	}
	next, err := fn(cur.Clone())
	if err != nil {
		return cur, err
	}
	if err := next.Validate(); err != nil {
		return cur, err
	}
	if err := g.save(ctx, uid, next); err != nil {
		if errors.Is(err, core.ErrSlugTaken) {
			return cur, err
		}
		return next, err
	}
	return next, nil
}

func (g *Ledgers) save(ctx context.Context, uid string, l core.Ledger) error {
	if l.PublicReadEnabled {
		if err := g.checkSlug(ctx, uid, l.PublicSlug); err != nil {
			return err
		}
	}

	err := g.repo.save(ctx, uid, l)
	g.keepShared(uid, l)
	g.changed(l.PublicSlug)
	if err != nil {
		return err
	}
	if !g.shadowing(uid) {
		return nil
	}
	if err := g.syncShadow(ctx, uid, l); err != nil {
		if errors.Is(err, core.ErrSlugTaken) {
			return err
		}
		return g.shadowFailed(ctx, uid, l.ID, l.PublicSlug, err)
	}
	return nil
}

// Delete removes the ledger and, once the owner copy is gone, its shadow.
func (g *Ledgers) Delete(ctx context.Context, uid, id string) error {
	if id == "" {
		return core.ErrEmptyID
	}
	unlock := g.repo.locks.Lock(id)
	defer unlock()

	slug := g.slugOf(ctx, uid, id)
	err := g.repo.delete(ctx, uid, id)
	if slug != "" {
		g.dropShared(uid, slug)
		g.changed(slug)
	}
	if err != nil || slug == "" || !g.shadowing(uid) {
		return err
	}
	if err := g.deleteOwnedShadow(ctx, uid, slug); err != nil {
		return g.shadowFailed(ctx, uid, id, slug, err)
	}
	return nil
}

// GetBySlug resolves a public ledger. A remote not-found is final; when the
// remote store fails or is absent the device's copy of the shared ledgers
// is used instead. Only ledgers open for public reading are returned.
func (g *Ledgers) GetBySlug(ctx context.Context, slug string) (core.PublicLedger, error) {
	if slug == "" {
		return core.PublicLedger{}, ErrNotFound
	}
	if g.public != nil {
		pl, err := g.public.GetPublicLedger(ctx, slug)
		switch {
		case err == nil:
			if !pl.PublicReadEnabled {
				return core.PublicLedger{}, ErrNotFound
			}
			g.keepShared(pl.OwnerID, pl.Ledger)
			return pl, nil
		case errors.Is(err, remote.ErrNotFound):
			if _, ok := g.sharedBySlug(slug); ok {
				g.shared.Remove(slug)
			}
			return core.PublicLedger{}, ErrNotFound
		default:
			logger().WarnContext(ctx, "Public ledger lookup failed, serving device copy",
				"slug", slug, "error", err)
		}
	}
	if s, ok := g.sharedBySlug(slug); ok && s.PublicReadEnabled {
		return s.PublicLedger, nil
	}
	return core.PublicLedger{}, ErrNotFound
}

// Reconcile re-reads the owner copy and re-applies its shadow. When the
// owner copy no longer exists the owner's shadow under slug is removed.
func (g *Ledgers) Reconcile(ctx context.Context, uid, ledgerID, slug string) error {
	if g.owners == nil || g.public == nil || uid == "" {
		return nil
	}
	unlock := g.repo.locks.Lock(ledgerID)
	defer unlock()

	l, err := g.owners.GetLedger(ctx, uid, ledgerID)
	if errors.Is(err, remote.ErrNotFound) {
		if slug == "" {
			return nil
		}
		g.dropShared(uid, slug)
		g.changed(slug)
		return g.deleteOwnedShadow(ctx, uid, slug)
	}
	if err != nil {
		return fmt.Errorf("read owner ledger %s: %w", ledgerID, err)
	}
	if err := g.syncShadow(ctx, uid, l); err != nil {
		if errors.Is(err, core.ErrSlugTaken) {
			logger().WarnContext(ctx, "Slug belongs to another owner, shadow left alone",
				"ledger_id", ledgerID, "slug", l.PublicSlug)
			return nil
		}
		return fmt.Errorf("sync shadow %s: %w", l.PublicSlug, err)
	}
	g.keepShared(uid, l)
	g.changed(l.PublicSlug)
	return nil
}

func (g *Ledgers) shadowing(uid string) bool {
	return uid != "" && g.public != nil
}

// checkSlug rejects a slug whose shadow belongs to another user. When the
// remote store cannot answer the device copy decides; the shadow write
// checks again.
func (g *Ledgers) checkSlug(ctx context.Context, uid, slug string) error {
	if g.shadowing(uid) {
		owner, err := g.remoteOwner(ctx, slug)
		if err == nil {
			return slugConflict(uid, owner, slug)
		}
	}
	if s, ok := g.sharedBySlug(slug); ok {
		return slugConflict(uid, s.OwnerID, slug)
	}
	return nil
}

func slugConflict(uid, owner, slug string) error {
	if owner != "" && owner != uid {
		return fmt.Errorf("%w: %s", core.ErrSlugTaken, slug)
	}
	return nil
}

// remoteOwner returns the owner of the shadow under slug, or "" when there
// is none.
func (g *Ledgers) remoteOwner(ctx context.Context, slug string) (string, error) {
	pl, err := g.public.GetPublicLedger(ctx, slug)
	switch {
	case err == nil:
		return pl.OwnerID, nil
	case errors.Is(err, remote.ErrNotFound):
		return "", nil
	default:
		return "", err
	}
}

func (g *Ledgers) syncShadow(ctx context.Context, uid string, l core.Ledger) error {
	if !l.PublicReadEnabled {
		return g.deleteOwnedShadow(ctx, uid, l.PublicSlug)
	}
	owner, err := g.remoteOwner(ctx, l.PublicSlug)
	if err != nil {
		return err
	}
	if err := slugConflict(uid, owner, l.PublicSlug); err != nil {
		return err
	}
	return g.public.PutPublicLedger(ctx, l.Shadow(uid))
}

// deleteOwnedShadow removes the shadow under slug when uid owns it.
func (g *Ledgers) deleteOwnedShadow(ctx context.Context, uid, slug string) error {
	owner, err := g.remoteOwner(ctx, slug)
	if err != nil {
		return err
	}
	if owner != uid {
		return nil
	}
	if err := g.public.DeletePublicLedger(ctx, slug); err != nil && !errors.Is(err, remote.ErrNotFound) {
		return err
	}
	return nil
}

// slugOf finds the slug of ledger id in the user's snapshot, then in the
// owner copy.
func (g *Ledgers) slugOf(ctx context.Context, uid, id string) string {
	for _, l := range g.repo.Cached(uid) {
		if l.ID == id {
			return l.PublicSlug
		}
	}
	if g.owners != nil && uid != "" {
		if l, err := g.owners.GetLedger(ctx, uid, id); err == nil {
			return l.PublicSlug
		}
	}
	return ""
}

func (g *Ledgers) sharedBySlug(slug string) (sharedLedger, bool) {
	for _, s := range g.shared.Load() {
		if s.PublicSlug == slug {
			return s, true
		}
	}
	return sharedLedger{}, false
}

// keepShared mirrors l into the device's shared ledgers: present while it
// is public, absent otherwise. Copies owned by another user are left alone.
func (g *Ledgers) keepShared(uid string, l core.Ledger) {
	cur, ok := g.sharedBySlug(l.PublicSlug)
	if ok && cur.OwnerID != uid {
		return
	}
	for _, s := range g.shared.Load() {
		if s.OwnerID == uid && s.ID == l.ID && s.PublicSlug != l.PublicSlug {
			g.shared.Remove(s.PublicSlug)
		}
	}
	if !l.PublicReadEnabled {
		if ok {
			g.shared.Remove(l.PublicSlug)
		}
		return
	}
	next := sharedLedger{l.Shadow(uid)}
	if ok && reflect.DeepEqual(cur, next) {
		return
	}
	g.shared.Upsert(next)
}

func (g *Ledgers) dropShared(uid, slug string) {
	if s, ok := g.sharedBySlug(slug); ok && s.OwnerID == uid {
		g.shared.Remove(slug)
	}
}

func (g *Ledgers) shadowFailed(ctx context.Context, uid, ledgerID, slug string, cause error) error {
	logger().WarnContext(ctx, "Public shadow out of sync with owner ledger",
		"ledger_id", ledgerID, "slug", slug, "error", cause)
	if g.publisher != nil {
		if err := g.publisher.PublishShadowReconcile(ctx, uid, ledgerID, slug); err != nil {
			logger().ErrorContext(ctx, "Failed to request shadow reconcile",
				"ledger_id", ledgerID, "slug", slug, "error", err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrShadowSync, slug, cause)
}

func (g *Ledgers) changed(slug string) {
	if g.onChange != nil && slug != "" {
		g.onChange(slug)
	}
}
