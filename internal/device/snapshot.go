package device

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Record is anything cached in a Snapshot.
type Record interface {
	RecordID() string
}

// Snapshot is the cached list of one document family, stored as a JSON
// array under a single key. An unreadable value is treated as empty.
type Snapshot[T Record] struct {
	kv  KV
	key string
	mu  sync.Mutex
}

func NewSnapshot[T Record](kv KV, key string) *Snapshot[T] {
	return &Snapshot[T]{kv: kv, key: key}
}

// Snapshots hands out the Snapshot of one document family for each user.
type Snapshots[T Record] struct {
	kv     KV
	family string

	mu     sync.Mutex
	byUser map[string]*Snapshot[T]
}

func NewSnapshots[T Record](kv KV, family string) *Snapshots[T] {
	return &Snapshots[T]{kv: kv, family: family, byUser: map[string]*Snapshot[T]{}}
}

// For returns the snapshot of uid. The same uid always gets the same
// Snapshot so its lock covers every caller.
func (s *Snapshots[T]) For(uid string) *Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byUser[uid]
	if !ok {
		snap = NewSnapshot[T](s.kv, UserKey(s.family, uid))
		s.byUser[uid] = snap
	}
	return snap
}

// Load returns the cached list, or an empty list when nothing usable is stored.
func (s *Snapshot[T]) Load() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Replace overwrites the cached list.
func (s *Snapshot[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(items)
}

// Upsert replaces the item with the same id in place, or inserts it at the
// head of the list.
func (s *Snapshot[T]) Upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.load()
	for i := range items {
		if items[i].RecordID() == item.RecordID() {
			items[i] = item
			s.store(items)
			return
		}
	}
	s.store(append([]T{item}, items...))
}

// Remove drops the item with the given id, if present.
func (s *Snapshot[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.load()
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.RecordID() != id {
			out = append(out, it)
		}
	}
	s.store(out)
}

func (s *Snapshot[T]) load() []T {
	raw, ok := s.kv.Get(s.key)
	if !ok || len(raw) == 0 {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("Discarding unreadable device snapshot", "key", s.key, "error", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

func (s *Snapshot[T]) store(items []T) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		slog.Error("Failed to encode device snapshot", "key", s.key, "error", err)
		return
	}
	s.kv.Set(s.key, raw)
}
