// Package dashboard builds the monthly cash-flow view: real transactions of
// the month plus one synthesized settlement row per ledger that still has an
// outstanding balance.
package dashboard

import (
	"fmt"

	"foco/internal/core"
	"foco/internal/ledger"
)

// Kind tags the Row variants.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindSettlement  Kind = "settlement"
)

// Row is either a TransactionRow or a SettlementRow. The set is closed.
type Row interface {
	Kind() Kind
	RowType() core.TransactionType
	RowValue() core.Money
	RowCategory() string
	RowNote() string
	isRow()
}

// TransactionRow wraps a persisted transaction; it can be edited and deleted.
type TransactionRow struct {
	core.Transaction
}

func (TransactionRow) Kind() Kind                       { return KindTransaction }
func (r TransactionRow) RowType() core.TransactionType { return r.Type }
func (r TransactionRow) RowValue() core.Money          { return r.Value }
func (r TransactionRow) RowCategory() string           { return r.Category }
func (r TransactionRow) RowNote() string               { return r.Note }
func (TransactionRow) isRow()                          {}

// SettlementRow summarizes a ledger's outstanding balance. It is recomputed
// on every load, never persisted and never editable.
type SettlementRow struct {
	LedgerID   string               `json:"ledgerId"`
	FriendName string               `json:"friendName"`
	Type       core.TransactionType `json:"type"`
	Value      core.Money           `json:"value"`
	Category   string               `json:"category"`
	Note       string               `json:"note"`
}

func (SettlementRow) Kind() Kind                       { return KindSettlement }
func (r SettlementRow) RowType() core.TransactionType { return r.Type }
func (r SettlementRow) RowValue() core.Money          { return r.Value }
func (r SettlementRow) RowCategory() string           { return r.Category }
func (r SettlementRow) RowNote() string               { return r.Note }
func (SettlementRow) isRow()                          {}

// Settlements synthesizes one row per ledger with a non-zero balance, in
// ledger order.
func Settlements(ledgers []core.Ledger) []SettlementRow {
	var rows []SettlementRow
	for _, l := range ledgers {
		b := ledger.ComputeBalance(l.Entries)
		if b.Cents == 0 {
			continue
		}
		typ := core.Expense
		if b.Cents > 0 {
			typ = core.Income
		}
		rows = append(rows, SettlementRow{
			LedgerID:   l.ID,
			FriendName: l.FriendName,
			Type:       typ,
			Value:      b.Abs(),
			Category:   core.CategorySharedDebt,
			Note:       fmt.Sprintf("Acerto com %s", l.FriendName),
		})
	}
	return rows
}
