package ledger

import (
	"errors"
	"reflect"
	"regexp"
	"testing"

	"foco/internal/core"
)

func entry(id, date string, cents int64, paidBy core.Party, status core.EntryStatus) core.LedgerEntry {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	e := core.NewLedgerEntry(id, d, core.Money{Cents: cents}, paidBy, id)
	e.Status = status
	return e
}

func sample() []core.LedgerEntry {
	return []core.LedgerEntry{
		entry("e1", "2024-12-24", 35000, core.Me, core.StatusOpen),
		entry("e2", "2024-12-25", 12000, core.Friend, core.StatusOpen),
		entry("e3", "2025-01-03", 5000, core.Friend, core.StatusPaid),
		entry("e4", "2025-01-10", 0, core.Me, core.StatusOpen),
	}
}

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name    string
		entries []core.LedgerEntry
		want    int64
		dir     Direction
	}{
		{"empty", nil, 0, Settled},
		{"friend owes me", sample(), 23000, OwedToMe},
		{"i owe", []core.LedgerEntry{entry("a", "2025-01-01", 1000, core.Friend, core.StatusOpen)}, -1000, IOwe},
		{"equal amounts settle", []core.LedgerEntry{
			entry("a", "2025-01-01", 1000, core.Friend, core.StatusOpen),
			entry("b", "2025-01-02", 1000, core.Me, core.StatusOpen),
		}, 0, Settled},
		{"paid entries contribute nothing", []core.LedgerEntry{
			entry("a", "2025-01-01", 999999, core.Friend, core.StatusPaid),
			entry("b", "2025-01-02", 999999, core.Me, core.StatusPaid),
		}, 0, Settled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalance(tt.entries)
			if got.Cents != tt.want || got.Direction() != tt.dir {
				t.Errorf("ComputeBalance() = %d (%s), want %d (%s)", got.Cents, got.Direction(), tt.want, tt.dir)
			}
		})
	}
}

func TestTogglePaidRestoresBalance(t *testing.T) {
	entries := sample()
	before := ComputeBalance(entries)
	for _, e := range entries {
		once, err := TogglePaid(entries, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := TogglePaid(once, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got := ComputeBalance(twice); got != before {
			t.Errorf("toggle %s twice: balance %d, want %d", e.ID, got.Cents, before.Cents)
		}
		if !reflect.DeepEqual(twice, entries) {
			t.Errorf("toggle %s twice changed entries", e.ID)
		}
	}
	if entries[0].Status != core.StatusOpen {
		t.Fatal("TogglePaid mutated its input")
	}
}

func TestTogglePaidUnknownID(t *testing.T) {
	if _, err := TogglePaid(sample(), "nope"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSettleMonthScoping(t *testing.T) {
	entries := sample()
	settled := SettleMonth(entries, "2024-12")
	for i, e := range settled {
		if e.Date.InMonth("2024-12") {
			if e.Status != core.StatusPaid {
				t.Errorf("%s should be paid", e.ID)
			}
			continue
		}
		if !reflect.DeepEqual(e, entries[i]) {
			t.Errorf("%s outside the month changed: %+v -> %+v", e.ID, entries[i], e)
		}
	}
	if got := ComputeBalance(settled); got.Cents != 0 {
		t.Errorf("balance after settling december = %d, want 0", got.Cents)
	}
	if entries[0].Status != core.StatusOpen {
		t.Fatal("SettleMonth mutated its input")
	}
}

func TestSettleMonthAlreadyPaidStaysPaid(t *testing.T) {
	settled := SettleMonth(sample(), "2025-01")
	for _, e := range settled {
		if e.Date.InMonth("2025-01") && e.Status != core.StatusPaid {
			t.Errorf("%s should be paid", e.ID)
		}
	}
}

func TestMonthlyStats(t *testing.T) {
	if got := MonthlyStats(nil, "2025-01"); got != (Stats{}) {
		t.Fatalf("empty stats = %+v", got)
	}
	got := MonthlyStats(sample(), "2025-01")
	want := Stats{MePaid: core.Money{Cents: 0}, FriendPaid: core.Money{Cents: 5000}}
	if got != want {
		t.Fatalf("MonthlyStats = %+v, want %+v", got, want)
	}
	got = MonthlyStats(sample(), "2024-12")
	want = Stats{MePaid: core.Money{Cents: 35000}, FriendPaid: core.Money{Cents: 12000}}
	if got != want {
		t.Fatalf("MonthlyStats = %+v, want %+v", got, want)
	}
}

func TestEntryListOperations(t *testing.T) {
	entries := sample()

	added := AddEntry(entries, entry("new", "2025-01-20", 100, core.Me, core.StatusOpen))
	if len(added) != len(entries)+1 || added[0].ID != "new" {
		t.Fatalf("AddEntry must prepend, got %v", added[0].ID)
	}

	edited := entries[1]
	edited.Amount = core.Money{Cents: 1}
	updated, err := UpdateEntry(added, edited)
	if err != nil {
		t.Fatal(err)
	}
	if updated[2].Amount.Cents != 1 || len(updated) != len(added) {
		t.Fatalf("UpdateEntry replaced the wrong entry: %+v", updated)
	}
	if _, err := UpdateEntry(added, entry("ghost", "2025-01-01", 1, core.Me, core.StatusOpen)); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	deleted := DeleteEntry(updated, "e4")
	if len(deleted) != len(updated)-1 {
		t.Fatalf("DeleteEntry kept %d entries", len(deleted))
	}
	for _, e := range deleted {
		if e.ID == "e4" {
			t.Fatal("e4 still present")
		}
	}
}

func TestDeletingLastEntryOfMonthYieldsEmptyView(t *testing.T) {
	entries := []core.LedgerEntry{entry("only", "2025-02-01", 100, core.Me, core.StatusOpen)}
	s := Summarize(core.Ledger{Entries: DeleteEntry(entries, "only")}, "2025-02")
	if len(s.MonthEntries) != 0 || s.MonthStats != (Stats{}) || s.Balance != 0 || s.Direction != Settled {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestNewPublicSlug(t *testing.T) {
	slug := NewPublicSlug("  Viagem Natal 2024 ")
	if ok, _ := regexp.MatchString(`^viagem-natal-2024-[0-9a-f]{6}$`, slug); !ok {
		t.Fatalf("unexpected slug %q", slug)
	}
	if NewPublicSlug("Viagem Natal 2024") == NewPublicSlug("Viagem Natal 2024") {
		t.Fatal("slugs for the same title must differ")
	}
	if ok, _ := regexp.MatchString(`^[0-9a-f]{6}$`, NewPublicSlug("!!!")); !ok {
		t.Fatal("symbol-only title should fall back to the random suffix")
	}
}

func TestNewLedgerIsPrivateAndValid(t *testing.T) {
	l := New("Casa", "Ana")
	if l.PublicReadEnabled {
		t.Fatal("new ledgers start private")
	}
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
}
