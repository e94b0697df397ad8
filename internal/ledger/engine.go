// Package ledger derives balances and monthly aggregates from a two-party
// ledger and applies the entry-level state transitions (add, edit, delete,
// mark paid, settle a month).
//
// Every function is pure: inputs are never mutated, mutators return a fresh
// slice, and callers re-derive the aggregates after each change.
package ledger

import (
	"errors"

	"foco/internal/core"
)

var ErrEntryNotFound = errors.New("ledger entry not found")

// Direction is the sign of a running balance.
type Direction string

const (
	OwedToMe Direction = "owed_to_me"
	IOwe     Direction = "i_owe"
	Settled  Direction = "settled"
)

// Balance is the signed outstanding amount between the two parties.
// Positive: the friend owes the user. Negative: the user owes the friend.
type Balance struct {
	Cents int64
}

func (b Balance) Direction() Direction {
	switch {
	case b.Cents > 0:
		return OwedToMe
	case b.Cents < 0:
		return IOwe
	default:
		return Settled
	}
}

// Abs returns the magnitude as a non-negative amount.
func (b Balance) Abs() core.Money {
	return core.Money{Cents: b.Cents}.Abs()
}

// Stats are the month's totals grouped by payer.
type Stats struct {
	MePaid     core.Money `json:"mePaid"`
	FriendPaid core.Money `json:"friendPaid"`
}

// ComputeBalance folds every non-paid entry: +amount when the user paid,
// -amount when the friend paid. Paid entries contribute nothing.
func ComputeBalance(entries []core.LedgerEntry) Balance {
	var cents int64
	for _, e := range entries {
		if e.Status == core.StatusPaid {
			continue
		}
		if e.PaidBy == core.Me {
			cents += e.Amount.Cents
		} else {
			cents -= e.Amount.Cents
		}
	}
	return Balance{Cents: cents}
}

// EntriesForMonth keeps the entries whose date falls in month, in list order.
func EntriesForMonth(entries []core.LedgerEntry, month core.MonthKey) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date.InMonth(month) {
			out = append(out, e)
		}
	}
	return out
}

// MonthlyStats sums amounts by payer over the month's entries, paid or not.
func MonthlyStats(entries []core.LedgerEntry, month core.MonthKey) Stats {
	var s Stats
	for _, e := range EntriesForMonth(entries, month) {
		if e.PaidBy == core.Me {
			s.MePaid = s.MePaid.Add(e.Amount)
		} else {
			s.FriendPaid = s.FriendPaid.Add(e.Amount)
		}
	}
	return s
}

// TogglePaid flips the status of entry id between open and paid.
func TogglePaid(entries []core.LedgerEntry, id string) ([]core.LedgerEntry, error) {
	out, found := mapEntries(entries, func(e core.LedgerEntry) (core.LedgerEntry, bool) {
		if e.ID != id {
			return e, false
		}
		if e.Status == core.StatusPaid {
			e.Status = core.StatusOpen
		} else {
			e.Status = core.StatusPaid
		}
		return e, true
	})
	if !found {
		return entries, ErrEntryNotFound
	}
	return out, nil
}

// SettleMonth marks every entry of month as paid, whatever its current
// status. Entries outside the month are copied unchanged.
func SettleMonth(entries []core.LedgerEntry, month core.MonthKey) []core.LedgerEntry {
	out, _ := mapEntries(entries, func(e core.LedgerEntry) (core.LedgerEntry, bool) {
		if !e.Date.InMonth(month) {
			return e, false
		}
		e.Status = core.StatusPaid
		return e, true
	})
	return out
}

// AddEntry prepends e.
func AddEntry(entries []core.LedgerEntry, e core.LedgerEntry) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries)+1)
	out = append(out, e)
	return append(out, entries...)
}

// UpdateEntry replaces the entry with the same id as e.
func UpdateEntry(entries []core.LedgerEntry, e core.LedgerEntry) ([]core.LedgerEntry, error) {
	out, found := mapEntries(entries, func(cur core.LedgerEntry) (core.LedgerEntry, bool) {
		if cur.ID != e.ID {
			return cur, false
		}
		return e, true
	})
	if !found {
		return entries, ErrEntryNotFound
	}
	return out, nil
}

// DeleteEntry drops the entry with id. Deleting an unknown id is a no-op.
func DeleteEntry(entries []core.LedgerEntry, id string) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func mapEntries(entries []core.LedgerEntry, fn func(core.LedgerEntry) (core.LedgerEntry, bool)) ([]core.LedgerEntry, bool) {
	out := make([]core.LedgerEntry, len(entries))
	found := false
	for i, e := range entries {
		next, hit := fn(e)
		out[i] = next
		found = found || hit
	}
	return out, found
}
