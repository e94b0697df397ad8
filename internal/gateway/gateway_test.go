package gateway

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"foco/internal/core"
	"foco/internal/device"
	"foco/internal/remote"
	"foco/internal/remote/memory"
)

const uid = "user-1"

func sampleTx(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID:       id,
		Date:     core.NewDate(2025, 3, 10),
		Type:     core.Expense,
		Value:    core.Money{Cents: cents},
		Category: core.CategoryFood,
	}
}

func sampleLedger(public bool) core.Ledger {
	return core.Ledger{
		ID:                "l1",
		Title:             "Viagem",
		FriendName:        "Ana",
		PublicSlug:        "viagem-a1b2c3",
		PublicReadEnabled: public,
		Entries: []core.LedgerEntry{
			core.NewLedgerEntry("e1", core.NewDate(2025, 3, 1), core.Money{Cents: 5000}, core.Me, "hotel"),
		},
	}
}

// shadowFailStore fails only public shadow writes.
type shadowFailStore struct {
	*memory.Store
	fail bool
}

func (s *shadowFailStore) PutPublicLedger(ctx context.Context, pl core.PublicLedger) error {
	if s.fail {
		return errors.New("shadow write refused")
	}
	return s.Store.PutPublicLedger(ctx, pl)
}

func (s *shadowFailStore) DeletePublicLedger(ctx context.Context, slug string) error {
	if s.fail {
		return errors.New("shadow delete refused")
	}
	return s.Store.DeletePublicLedger(ctx, slug)
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][3]string
}

func (p *recordingPublisher) PublishShadowReconcile(_ context.Context, uid, ledgerID, slug string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [3]string{uid, ledgerID, slug})
	return nil
}

func TestListFallsBackToLastSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})

	for _, tx := range []core.Transaction{sampleTx("a", 100), sampleTx("b", 200)} {
		if err := g.Transactions.Save(ctx, uid, tx); err != nil {
			t.Fatal(err)
		}
	}
	online := g.Transactions.List(ctx, uid)
	if len(online) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(online))
	}

	store.SetFailures(true, false)
	offline := g.Transactions.List(ctx, uid)
	if !reflect.DeepEqual(online, offline) {
		t.Fatalf("fallback differs from last snapshot:\n%+v\n%+v", online, offline)
	}
}

func TestListWithoutUserUsesSnapshotOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})

	if err := g.Transactions.Save(ctx, "", sampleTx("local", 100)); err != nil {
		t.Fatal(err)
	}
	if remoteTxs, _ := store.ListTransactions(ctx, ""); len(remoteTxs) != 0 {
		t.Fatal("unauthenticated save must not reach the remote store")
	}
	if got := g.Transactions.List(ctx, ""); len(got) != 1 || got[0].ID != "local" {
		t.Fatalf("unexpected local list %+v", got)
	}
}

func TestSaveKeepsLocalCopyOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.SetFailures(false, true)
	g := New(store, device.NewMemoryKV(), Options{})

	err := g.Transactions.Save(ctx, uid, sampleTx("a", 100))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if !errors.Is(err, memory.ErrUnavailable) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	if got := g.Transactions.Cached(uid); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("local snapshot missing the change: %+v", got)
	}
}

func TestDeleteRemovesLocallyOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	if err := g.Transactions.Save(ctx, uid, sampleTx("a", 100)); err != nil {
		t.Fatal(err)
	}

	store.SetFailures(false, true)
	if err := g.Transactions.Delete(ctx, uid, "a"); !IsWriteError(err) {
		t.Fatalf("expected write error, got %v", err)
	}
	if got := g.Transactions.Cached(uid); len(got) != 0 {
		t.Fatalf("local copy should be gone: %+v", got)
	}
}

func TestValidationRejectsBeforeStorage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})

	bad := sampleTx("a", -1)
	if err := g.Transactions.Save(ctx, uid, bad); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected negative amount error, got %v", err)
	}
	noTitle := sampleLedger(true)
	noTitle.Title = " "
	if err := g.Ledgers.Save(ctx, uid, noTitle); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected empty title error, got %v", err)
	}

	if txs, _ := store.ListTransactions(ctx, uid); len(txs) != 0 {
		t.Fatal("rejected transaction reached the remote store")
	}
	if ls, _ := store.ListLedgers(ctx, uid); len(ls) != 0 {
		t.Fatal("rejected ledger reached the remote store")
	}
	if len(g.Transactions.Cached(uid)) != 0 || len(g.Ledgers.Cached(uid)) != 0 {
		t.Fatal("rejected records reached the snapshot")
	}
}

func TestShadowFollowsPublicFlag(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	var changed []string
	g := New(store, device.NewMemoryKV(), Options{OnPublicChange: func(s string) { changed = append(changed, s) }})

	l := sampleLedger(true)
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}
	pl, err := store.GetPublicLedger(ctx, l.PublicSlug)
	if err != nil {
		t.Fatalf("shadow missing: %v", err)
	}
	if pl.OwnerID != uid || !reflect.DeepEqual(pl.Ledger, l) {
		t.Fatalf("shadow does not mirror the owner copy: %+v", pl)
	}

	l.PublicReadEnabled = false
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPublicLedger(ctx, l.PublicSlug); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("shadow should be gone, got %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("expected two change notifications, got %v", changed)
	}
}

func TestOwnerFailureSkipsShadow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.SetFailures(false, true)
	g := New(store, device.NewMemoryKV(), Options{})

	err := g.Ledgers.Save(ctx, uid, sampleLedger(true))
	if !IsWriteError(err) || errors.Is(err, ErrShadowSync) {
		t.Fatalf("expected plain write error, got %v", err)
	}
	store.SetFailures(false, false)
	if _, err := store.GetPublicLedger(ctx, "viagem-a1b2c3"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("shadow must not exist without an owner copy, got %v", err)
	}
}

func TestShadowFailureRequestsReconcile(t *testing.T) {
	ctx := context.Background()
	store := &shadowFailStore{Store: memory.New(), fail: true}
	pub := &recordingPublisher{}
	g := New(store, device.NewMemoryKV(), Options{Publisher: pub})

	l := sampleLedger(true)
	err := g.Ledgers.Save(ctx, uid, l)
	if !errors.Is(err, ErrShadowSync) {
		t.Fatalf("expected ErrShadowSync, got %v", err)
	}
	if _, err := store.GetLedger(ctx, uid, l.ID); err != nil {
		t.Fatalf("owner copy must be saved: %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0] != [3]string{uid, l.ID, l.PublicSlug} {
		t.Fatalf("unexpected reconcile requests %v", pub.calls)
	}

	store.fail = false
	if err := g.Ledgers.Reconcile(ctx, uid, l.ID, l.PublicSlug); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPublicLedger(ctx, l.PublicSlug); err != nil {
		t.Fatalf("reconcile did not create the shadow: %v", err)
	}
}

func TestReconcileRemovesOrphanShadow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	orphan := sampleLedger(true).Shadow(uid)
	if err := store.PutPublicLedger(ctx, orphan); err != nil {
		t.Fatal(err)
	}
	if err := g.Ledgers.Reconcile(ctx, uid, orphan.ID, orphan.PublicSlug); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPublicLedger(ctx, orphan.PublicSlug); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("orphan shadow should be removed, got %v", err)
	}
}

func TestDeleteLedgerRemovesShadow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	l := sampleLedger(true)
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}
	if err := g.Ledgers.Delete(ctx, uid, l.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPublicLedger(ctx, l.PublicSlug); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("shadow should be removed with its ledger, got %v", err)
	}
	if _, err := g.Ledgers.Get(ctx, uid, l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBySlug(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	l := sampleLedger(true)
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}

	pl, err := g.Ledgers.GetBySlug(ctx, l.PublicSlug)
	if err != nil || pl.OwnerID != uid {
		t.Fatalf("remote lookup failed: %+v %v", pl, err)
	}
	if _, err := g.Ledgers.GetBySlug(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	store.SetFailures(true, false)
	pl, err = g.Ledgers.GetBySlug(ctx, l.PublicSlug)
	if err != nil || pl.ID != l.ID {
		t.Fatalf("snapshot fallback failed: %+v %v", pl, err)
	}
	if _, err := g.Ledgers.GetBySlug(ctx, l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fallback must match the slug only, got %v", err)
	}
}

func TestOfflineGatewayStaysLocal(t *testing.T) {
	ctx := context.Background()
	g := New(nil, device.NewMemoryKV(), Options{})
	l := sampleLedger(true)
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}
	if got := g.Ledgers.List(ctx, uid); len(got) != 1 {
		t.Fatalf("expected the local ledger, got %+v", got)
	}
	if _, err := g.Ledgers.GetBySlug(ctx, l.PublicSlug); err != nil {
		t.Fatalf("offline slug lookup failed: %v", err)
	}
	if err := g.Ping(ctx); err != nil {
		t.Fatalf("offline ping should succeed: %v", err)
	}
}

func TestConcurrentSavesOfOneRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(cents int64) {
			defer wg.Done()
			_ = g.Transactions.Save(ctx, uid, sampleTx("same", cents))
		}(i)
	}
	wg.Wait()

	remoteTxs, _ := store.ListTransactions(ctx, uid)
	local := g.Transactions.Cached(uid)
	if len(remoteTxs) != 1 || len(local) != 1 {
		t.Fatalf("expected a single record, remote=%d local=%d", len(remoteTxs), len(local))
	}
	if remoteTxs[0].Value != local[0].Value {
		t.Fatalf("tiers diverged: remote=%v local=%v", remoteTxs[0].Value, local[0].Value)
	}
}

func TestSnapshotsAreKeptPerUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})

	if err := g.Transactions.Save(ctx, "alice", sampleTx("alice-tx", 999)); err != nil {
		t.Fatal(err)
	}
	if err := g.Ledgers.Save(ctx, "alice", sampleLedger(false)); err != nil {
		t.Fatal(err)
	}
	g.Transactions.List(ctx, "alice")
	g.Ledgers.List(ctx, "alice")

	store.SetFailures(true, false)
	if got := g.Transactions.List(ctx, "bob"); len(got) != 0 {
		t.Fatalf("bob sees alice's transactions: %+v", got)
	}
	if got := g.Ledgers.List(ctx, "bob"); len(got) != 0 {
		t.Fatalf("bob sees alice's ledgers: %+v", got)
	}
	if _, err := g.Ledgers.Get(ctx, "bob", "l1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob resolved alice's ledger, err=%v", err)
	}
	_, err := g.Ledgers.Update(ctx, "bob", "l1", func(l core.Ledger) (core.Ledger, error) {
		l.Title = "taken over"
		return l, nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob updated alice's ledger, err=%v", err)
	}
	if got := g.Transactions.List(ctx, "alice"); len(got) != 1 || got[0].ID != "alice-tx" {
		t.Fatalf("alice lost her snapshot: %+v", got)
	}
}

func TestSlugFallbackServesOnlySharedLedgers(t *testing.T) {
	tests := []struct {
		name   string
		public bool
		found  bool
	}{
		{"shared", true, true},
		{"private", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			g := New(store, device.NewMemoryKV(), Options{})
			l := sampleLedger(tt.public)
			if err := g.Ledgers.Save(ctx, uid, l); err != nil {
				t.Fatal(err)
			}
			g.Ledgers.List(ctx, uid)

			store.SetFailures(true, false)
			pl, err := g.Ledgers.GetBySlug(ctx, l.PublicSlug)
			if tt.found {
				if err != nil || pl.ID != l.ID || pl.OwnerID != uid {
					t.Fatalf("device copy not served: %+v %v", pl, err)
				}
				return
			}
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("private ledger exposed: %+v %v", pl, err)
			}
		})
	}
}

func TestSlugFallbackForgetsDisabledLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	l := sampleLedger(true)
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}
	l.PublicReadEnabled = false
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}

	store.SetFailures(true, false)
	if _, err := g.Ledgers.GetBySlug(ctx, l.PublicSlug); !errors.Is(err, ErrNotFound) {
		t.Fatalf("disabled ledger still served, err=%v", err)
	}
}

func TestSlugBelongsToFirstOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})

	mine := sampleLedger(true)
	if err := g.Ledgers.Save(ctx, "alice", mine); err != nil {
		t.Fatal(err)
	}

	theirs := sampleLedger(true)
	theirs.ID = "l2"
	theirs.Title = "Bob private"
	err := g.Ledgers.Save(ctx, "bob", theirs)
	if !errors.Is(err, core.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
	if _, err := store.GetLedger(ctx, "bob", theirs.ID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("rejected ledger reached the remote store, err=%v", err)
	}

	pl, err := g.Ledgers.GetBySlug(ctx, mine.PublicSlug)
	if err != nil || pl.OwnerID != "alice" || pl.Title != mine.Title {
		t.Fatalf("alice's shadow was overwritten: %+v %v", pl, err)
	}

	theirs.PublicReadEnabled = false
	if err := g.Ledgers.Save(ctx, "bob", theirs); err != nil {
		t.Fatalf("private save under the same slug: %v", err)
	}
	if pl, err := store.GetPublicLedger(ctx, mine.PublicSlug); err != nil || pl.OwnerID != "alice" {
		t.Fatalf("bob's private save removed alice's shadow: %+v %v", pl, err)
	}
	if err := g.Ledgers.Delete(ctx, "bob", theirs.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPublicLedger(ctx, mine.PublicSlug); err != nil {
		t.Fatalf("bob's delete removed alice's shadow: %v", err)
	}
}

func TestConcurrentUpdatesOfOneLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	l := sampleLedger(false)
	l.Entries = nil
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := g.Ledgers.Update(ctx, uid, l.ID, func(cur core.Ledger) (core.Ledger, error) {
				e := core.NewLedgerEntry(fmt.Sprintf("e%d", i), core.NewDate(2025, 3, 1), core.Money{Cents: 100}, core.Me, "")
				cur.Entries = append([]core.LedgerEntry{e}, cur.Entries...)
				return cur, nil
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := store.GetLedger(ctx, uid, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Entries) != n {
		t.Fatalf("lost updates: %d entries, want %d", len(stored.Entries), n)
	}
}

func TestUpdateReturnsStoredLedgerOnRejection(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := New(store, device.NewMemoryKV(), Options{})
	l := sampleLedger(false)
	if err := g.Ledgers.Save(ctx, uid, l); err != nil {
		t.Fatal(err)
	}

	got, err := g.Ledgers.Update(ctx, uid, l.ID, func(cur core.Ledger) (core.Ledger, error) {
		cur.Title = ""
		return cur, nil
	})
	if !errors.Is(err, core.ErrEmptyTitle) || got.Title != l.Title {
		t.Fatalf("got %+v %v", got, err)
	}
}
