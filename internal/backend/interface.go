package backend

import (
	"context"

	"foco/internal/gateway"
	"foco/internal/remote"
	"foco/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the remote store and the optional reconcile
// publisher, plus a cleanup function for both.
type BackendResult struct {
	Store remote.Store
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher gateway.ShadowPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	// Shared is reused by the sqlite backend instead of opening SQLiteDBPath
	// a second time. The caller keeps ownership.
	Shared *storage.SQLiteRepository

	// Firestore specific
	FirestoreProjectID       string
	FirestoreDatabaseID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend    BackendType = "memory"
	SQLiteBackend    BackendType = "sqlite"
	FirestoreBackend BackendType = "firestore"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}
