// Package netpay turns a contractor's gross monthly revenue into the net
// amount recorded as income.
//
//	net = max(0, gross - gross*6% - 167 - 270)
package netpay

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"foco/internal/core"
	"foco/internal/ledger"
)

var (
	// TaxRate is the flat tax on gross revenue.
	TaxRate = decimal.RequireFromString("0.06")
	// Contribution is the fixed mandatory social-security contribution.
	Contribution = core.NewMoney(167, 0)
	// Bookkeeping is the fixed accountant fee.
	Bookkeeping = core.NewMoney(270, 0)
)

// Result is the breakdown shown next to the prefilled value.
type Result struct {
	Gross        core.Money `json:"gross"`
	Tax          core.Money `json:"tax"`
	Contribution core.Money `json:"contribution"`
	Bookkeeping  core.Money `json:"bookkeeping"`
	Net          core.Money `json:"net"`
}

// Calculate applies the formula. A negative gross is treated as zero and the
// net never goes below zero.
func Calculate(gross decimal.Decimal) Result {
	if gross.IsNegative() {
		gross = decimal.Zero
	}
	tax := gross.Mul(TaxRate)
	net := gross.Sub(tax).Sub(Contribution.Decimal()).Sub(Bookkeeping.Decimal())
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Result{
		Gross:        core.FromDecimal(gross),
		Tax:          core.FromDecimal(tax),
		Contribution: Contribution,
		Bookkeeping:  Bookkeeping,
		Net:          core.FromDecimal(net),
	}
}

// Note is the human-readable breakdown appended to the transaction.
func (r Result) Note() string {
	return fmt.Sprintf("PJ: bruto atual R$ %s - (6%% impostos) - 167 INSS - 270 contabilidade", r.Gross.String())
}

// Prefill returns tx rewritten as a contractor salary income for gross.
// The id and date of tx are kept; an empty id gets a fresh one and a zero
// date becomes today.
func Prefill(tx core.Transaction, gross decimal.Decimal, today core.Date) (core.Transaction, Result) {
	r := Calculate(gross)
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = ledger.NewID()
	}
	if tx.Date.IsZero() {
		tx.Date = today
	}
	tx.Type = core.Income
	tx.Value = r.Net
	tx.Category = core.CategoryContractorSalary
	tx.IsPjSalary = true
	tx.Note = appendNote(tx.Note, r.Note())
	return tx, r
}

// appendNote adds the breakdown after any user text, replacing a breakdown
// left by an earlier calculation.
func appendNote(note, breakdown string) string {
	var kept []string
	for _, line := range strings.Split(note, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "PJ: ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(append(kept, breakdown), "\n")
}
