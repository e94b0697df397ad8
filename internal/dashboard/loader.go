package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"foco/internal/core"
)

type (
	TransactionLister interface {
		List(ctx context.Context, uid string) []core.Transaction
	}

	LedgerLister interface {
		List(ctx context.Context, uid string) []core.Ledger
	}
)

// Loader fetches both document families concurrently and builds the view.
type Loader struct {
	Transactions TransactionLister
	Ledgers      LedgerLister
}

func (l Loader) Load(ctx context.Context, uid string, f Filter) (View, error) {
	var (
		txs     []core.Transaction
		ledgers []core.Ledger
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs = l.Transactions.List(gctx, uid)
		return nil
	})
	g.Go(func() error {
		ledgers = l.Ledgers.List(gctx, uid)
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	return Build(txs, ledgers, f), nil
}
