package memory

import (
	"context"
	"errors"
	"sync"

	"foco/internal/core"
	"foco/internal/remote"
)

// ErrUnavailable is returned while fault injection is switched on.
var ErrUnavailable = errors.New("memory store unavailable")

// Store is an in-process remote.Store. Newly created documents are listed
// first.
type Store struct {
	mu      sync.Mutex
	txs     map[string][]core.Transaction
	ledgers map[string][]core.Ledger
	public  map[string]core.PublicLedger

	// FailReads and FailWrites make the matching operations return
	// ErrUnavailable, simulating an unreachable backend.
	FailReads  bool
	FailWrites bool
}

func New() *Store {
	return &Store{
		txs:     map[string][]core.Transaction{},
		ledgers: map[string][]core.Ledger{},
		public:  map[string]core.PublicLedger{},
	}
}

var _ remote.Store = (*Store)(nil)

// SetFailures toggles fault injection under the store lock.
func (s *Store) SetFailures(reads, writes bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailReads, s.FailWrites = reads, writes
}

func (s *Store) ListTransactions(_ context.Context, uid string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return nil, ErrUnavailable
	}
	return append([]core.Transaction{}, s.txs[uid]...), nil
}

func (s *Store) PutTransaction(_ context.Context, uid string, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrUnavailable
	}
	s.txs[uid] = upsert(s.txs[uid], tx)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrUnavailable
	}
	s.txs[uid] = without(s.txs[uid], id)
	return nil
}

func (s *Store) ListLedgers(_ context.Context, uid string) ([]core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return nil, ErrUnavailable
	}
	out := make([]core.Ledger, 0, len(s.ledgers[uid]))
	for _, l := range s.ledgers[uid] {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (s *Store) GetLedger(_ context.Context, uid, id string) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return core.Ledger{}, ErrUnavailable
	}
	for _, l := range s.ledgers[uid] {
		if l.ID == id {
			return l.Clone(), nil
		}
	}
	return core.Ledger{}, remote.ErrNotFound
}

func (s *Store) PutLedger(_ context.Context, uid string, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrUnavailable
	}
	s.ledgers[uid] = upsert(s.ledgers[uid], l.Clone())
	return nil
}

func (s *Store) DeleteLedger(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrUnavailable
	}
	s.ledgers[uid] = without(s.ledgers[uid], id)
	return nil
}

func (s *Store) GetPublicLedger(_ context.Context, slug string) (core.PublicLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return core.PublicLedger{}, ErrUnavailable
	}
	pl, ok := s.public[slug]
	if !ok {
		return core.PublicLedger{}, remote.ErrNotFound
	}
	return core.PublicLedger{Ledger: pl.Clone(), OwnerID: pl.OwnerID}, nil
}

func (s *Store) PutPublicLedger(_ context.Context, pl core.PublicLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrUnavailable
	}
	s.public[pl.PublicSlug] = core.PublicLedger{Ledger: pl.Clone(), OwnerID: pl.OwnerID}
	return nil
}

func (s *Store) DeletePublicLedger(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ErrUnavailable
	}
	delete(s.public, slug)
	return nil
}

// Ping reports ErrUnavailable while reads are failing.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return ErrUnavailable
	}
	return nil
}

type record interface {
	RecordID() string
}

func upsert[T record](items []T, item T) []T {
	for i := range items {
		if items[i].RecordID() == item.RecordID() {
			items[i] = item
			return items
		}
	}
	return append([]T{item}, items...)
}

func without[T record](items []T, id string) []T {
	out := items[:0]
	for _, it := range items {
		if it.RecordID() != id {
			out = append(out, it)
		}
	}
	return out
}
