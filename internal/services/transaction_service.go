package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"foco/internal/core"
	"foco/internal/ledger"
	"foco/internal/netpay"
)

// TransactionStore is satisfied by *gateway.Repository[core.Transaction].
type TransactionStore interface {
	List(ctx context.Context, uid string) []core.Transaction
	Find(ctx context.Context, uid, id string) (core.Transaction, error)
	Save(ctx context.Context, uid string, tx core.Transaction) error
	Delete(ctx context.Context, uid, id string) error
}

type TransactionService struct {
	txs TransactionStore
	now func() time.Time
}

func NewTransactionService(txs TransactionStore) *TransactionService {
	return &TransactionService{txs: txs, now: time.Now}
}

func (s *TransactionService) List(ctx context.Context, uid string) []core.Transaction {
	return s.txs.List(ctx, uid)
}

// Create assigns an id when missing and defaults the date to today. The
// transaction is returned even when only the device copy was written.
func (s *TransactionService) Create(ctx context.Context, uid string, tx core.Transaction) (core.Transaction, error) {
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = ledger.NewID()
	}
	if tx.Date.IsZero() {
		tx.Date = core.Today(s.now())
	}
	tx.Category = strings.TrimSpace(tx.Category)
	return tx, s.txs.Save(ctx, uid, tx)
}

// Update replaces transaction id. It must already exist.
func (s *TransactionService) Update(ctx context.Context, uid, id string, tx core.Transaction) (core.Transaction, error) {
	if _, err := s.txs.Find(ctx, uid, id); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = id
	tx.Category = strings.TrimSpace(tx.Category)
	return tx, s.txs.Save(ctx, uid, tx)
}

func (s *TransactionService) Delete(ctx context.Context, uid, id string) error {
	return s.txs.Delete(ctx, uid, id)
}

// PrefillNetPay computes the contractor income for gross without saving it.
func (s *TransactionService) PrefillNetPay(tx core.Transaction, gross decimal.Decimal) (core.Transaction, netpay.Result) {
	return netpay.Prefill(tx, gross, core.Today(s.now()))
}
