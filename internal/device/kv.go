// Package device holds the per-installation state: the cached snapshots of
// the user's documents, the authentication summary and the theme.
package device

import "sync"

// Keys under which the device state is stored. Every key except KeyPublic
// is suffixed with the user id, see UserKey.
const (
	KeyTransactions = "foco_finance_transactions"
	KeyLedgers      = "foco_finance_ledgers"
	KeyAuth         = "foco_finance_auth"
	KeyTheme        = "foco_finance_theme"
	KeyPublic       = "foco_finance_public"
)

// UserKey scopes a family key to one user. The empty uid is the signed-out
// device.
func UserKey(family, uid string) string {
	if uid == "" {
		return family
	}
	return family + ":" + uid
}

// KV is a synchronous string-keyed byte store. Implementations swallow their
// own failures: a failed Get reports a miss and a failed Set is dropped.
type KV interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// MemoryKV is a KV kept in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

func (m *MemoryKV) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (m *MemoryKV) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

func (m *MemoryKV) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}
