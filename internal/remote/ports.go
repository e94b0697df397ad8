// Package remote declares the ports of the authoritative store. Documents
// live under users/{uid}/transactions/{id}, users/{uid}/ledgers/{id} and
// public_ledgers/{slug}.
package remote

import (
	"context"
	"errors"

	"foco/internal/core"
)

// ErrNotFound is returned by every adapter when a document does not exist.
var ErrNotFound = errors.New("remote: document not found")

// Ports for outbound adapters.
type (
	TransactionStore interface {
		ListTransactions(ctx context.Context, uid string) ([]core.Transaction, error)
		PutTransaction(ctx context.Context, uid string, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, uid, id string) error
	}

	LedgerStore interface {
		ListLedgers(ctx context.Context, uid string) ([]core.Ledger, error)
		GetLedger(ctx context.Context, uid, id string) (core.Ledger, error)
		PutLedger(ctx context.Context, uid string, l core.Ledger) error
		DeleteLedger(ctx context.Context, uid, id string) error
	}

	// PublicLedgerStore holds the world-readable shadows keyed by slug.
	PublicLedgerStore interface {
		GetPublicLedger(ctx context.Context, slug string) (core.PublicLedger, error)
		PutPublicLedger(ctx context.Context, pl core.PublicLedger) error
		// DeletePublicLedger succeeds when the shadow is already gone.
		DeletePublicLedger(ctx context.Context, slug string) error
	}

	Store interface {
		TransactionStore
		LedgerStore
		PublicLedgerStore
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Paths of the document families, shared by the adapters.
func TransactionsPath(uid string) string { return "users/" + uid + "/transactions" }
func LedgersPath(uid string) string      { return "users/" + uid + "/ledgers" }

const PublicLedgersPath = "public_ledgers"
