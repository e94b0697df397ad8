package gateway

import (
	"context"

	"foco/internal/core"
	"foco/internal/device"
	"foco/internal/remote"
)

// Options carries the optional collaborators of a Gateway.
type Options struct {
	// Publisher receives reconcile requests for shadows that failed to sync.
	Publisher ShadowPublisher
	// OnPublicChange is called with the slug of every ledger whose public
	// view may have changed.
	OnPublicChange func(slug string)
	// SystemTheme is used until a theme is chosen.
	SystemTheme core.Theme
}

// Gateway is the single entry point to the user's data on this device.
type Gateway struct {
	Transactions *Repository[core.Transaction]
	Ledgers      *Ledgers
	State        *device.StateStore

	store remote.Store
}

// New wires the repositories. A nil store keeps everything on the device.
func New(store remote.Store, kv device.KV, opts Options) *Gateway {
	var (
		txs     Collection[core.Transaction]
		ledgers Collection[core.Ledger]
		owners  remote.LedgerStore
		public  remote.PublicLedgerStore
	)
	if store != nil {
		txs = transactionCollection{store}
		ledgers = ledgerCollection{store}
		owners = store
		public = store
	}
	return &Gateway{
		Transactions: NewRepository("transaction", txs, device.NewSnapshots[core.Transaction](kv, device.KeyTransactions)),
		Ledgers: &Ledgers{
			repo:      NewRepository("ledger", ledgers, device.NewSnapshots[core.Ledger](kv, device.KeyLedgers)),
			shared:    device.NewSnapshot[sharedLedger](kv, device.KeyPublic),
			owners:    owners,
			public:    public,
			publisher: opts.Publisher,
			onChange:  opts.OnPublicChange,
		},
		State: device.NewStateStore(kv, opts.SystemTheme),
		store: store,
	}
}

// Ping checks the remote store when it supports it.
func (g *Gateway) Ping(ctx context.Context) error {
	if p, ok := g.store.(remote.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
