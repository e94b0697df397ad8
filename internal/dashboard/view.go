package dashboard

import (
	"encoding/json"
	"sort"
	"strings"

	"foco/internal/core"
)

// Filter narrows the view. Empty Type or Category means "all".
type Filter struct {
	Month    core.MonthKey
	Search   string
	Type     core.TransactionType
	Category string
}

// Stats are folded over the filtered rows only.
type Stats struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	// Balance is income minus expense and may be negative.
	Balance core.Money `json:"balance"`
}

type View struct {
	Month core.MonthKey `json:"month"`
	Rows  []Row         `json:"-"`
	Stats Stats         `json:"stats"`
}

// Build combines settlements and the month's transactions, applies the
// search and equality filters, orders settlements first and transactions by
// date descending, then folds the stats.
func Build(transactions []core.Transaction, ledgers []core.Ledger, f Filter) View {
	var rows []Row
	for _, s := range Settlements(ledgers) {
		if f.matches(s) {
			rows = append(rows, s)
		}
	}

	var txs []core.Transaction
	for _, tx := range transactions {
		if tx.Date.InMonth(f.Month) && f.matches(TransactionRow{tx}) {
			txs = append(txs, tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date.Time)
	})
	for _, tx := range txs {
		rows = append(rows, TransactionRow{tx})
	}

	v := View{Month: f.Month, Rows: rows}
	for _, r := range rows {
		switch r.RowType() {
		case core.Income:
			v.Stats.Income = v.Stats.Income.Add(r.RowValue())
		case core.Expense:
			v.Stats.Expense = v.Stats.Expense.Add(r.RowValue())
		}
	}
	v.Stats.Balance = v.Stats.Income.Sub(v.Stats.Expense)
	return v
}

func (f Filter) matches(r Row) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.RowNote()), q) &&
			!strings.Contains(strings.ToLower(r.RowCategory()), q) {
			return false
		}
	}
	if f.Type != "" && r.RowType() != f.Type {
		return false
	}
	if f.Category != "" && r.RowCategory() != f.Category {
		return false
	}
	return true
}

// rowJSON is the wire form of a Row: the variant tag plus its fields.
type rowJSON struct {
	Kind       Kind                 `json:"kind"`
	ID         string               `json:"id,omitempty"`
	Date       string               `json:"date,omitempty"`
	LedgerID   string               `json:"ledgerId,omitempty"`
	Type       core.TransactionType `json:"type"`
	Value      core.Money           `json:"value"`
	Category   string               `json:"category"`
	Note       string               `json:"note,omitempty"`
	Person     string               `json:"person,omitempty"`
	IsPjSalary bool                 `json:"isPjSalary,omitempty"`
	Editable   bool                 `json:"editable"`
}

func encodeRow(r Row) rowJSON {
	switch v := r.(type) {
	case TransactionRow:
		return rowJSON{
			Kind:       KindTransaction,
			ID:         v.ID,
			Date:       v.Date.String(),
			Type:       v.Type,
			Value:      v.Value,
			Category:   v.Category,
			Note:       v.Note,
			Person:     v.Person,
			IsPjSalary: v.IsPjSalary,
			Editable:   true,
		}
	case SettlementRow:
		return rowJSON{
			Kind:     KindSettlement,
			LedgerID: v.LedgerID,
			Type:     v.Type,
			Value:    v.Value,
			Category: v.Category,
			Note:     v.Note,
		}
	}
	return rowJSON{Kind: r.Kind()}
}

func (v View) MarshalJSON() ([]byte, error) {
	rows := make([]rowJSON, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = encodeRow(r)
	}
	return json.Marshal(struct {
		Month core.MonthKey `json:"month"`
		Rows  []rowJSON     `json:"rows"`
		Stats Stats         `json:"stats"`
	}{v.Month, rows, v.Stats})
}
