package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDateJSONAndMonth(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2025-01-10"`), &d); err != nil {
		t.Fatal(err)
	}
	if d != NewDate(2025, 1, 10) {
		t.Fatalf("got %v", d)
	}
	if d.MonthKey() != "2025-01" {
		t.Fatalf("MonthKey = %q", d.MonthKey())
	}
	if !d.InMonth("2025-01") || d.InMonth("2025-02") || d.InMonth("") {
		t.Fatal("InMonth prefix match is wrong")
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2025-01-10"` {
		t.Fatalf("marshal = %s", b)
	}
	if err := json.Unmarshal([]byte(`"10/01/2025"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestZeroDateHasNoMonth(t *testing.T) {
	if (Date{}).MonthKey() != "" {
		t.Fatal("zero date must have an empty month key")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:       "1",
		Date:     NewDate(2025, 1, 10),
		Type:     Expense,
		Value:    Money{Cents: 12050},
		Category: CategoryFood,
		Note:     "Jantar com amigos",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Value = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero value must be accepted, got %v", err)
	}

	bads := map[string]struct {
		mutate func(*Transaction)
		want   error
	}{
		"negative value": {func(tx *Transaction) { tx.Value = Money{Cents: -1} }, ErrNegativeAmount},
		"missing id":     {func(tx *Transaction) { tx.ID = " " }, ErrEmptyID},
		"missing date":   {func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		"bad type":       {func(tx *Transaction) { tx.Type = "TRANSFER" }, ErrInvalidType},
		"no category":    {func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
	}
	for name, tc := range bads {
		t.Run(name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("%v should be a validation error", err)
			}
		})
	}
}

func TestLedgerEntryOwesToIsComplement(t *testing.T) {
	e := NewLedgerEntry("e1", NewDate(2024, 12, 24), Money{Cents: 35000}, Me, " Aluguel do carro ")
	if e.OwesTo != Friend || e.Status != StatusOpen || e.Description != "Aluguel do carro" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if err := e.Validate(); err != nil {
		t.Fatal(err)
	}
	e.OwesTo = Me
	if err := e.Validate(); !errors.Is(err, ErrOwesToMismatch) {
		t.Fatalf("expected ErrOwesToMismatch, got %v", err)
	}
	neg := NewLedgerEntry("e2", NewDate(2024, 12, 25), Money{Cents: -1}, Friend, "x")
	if err := neg.Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestLedgerValidateWrapsEntryErrors(t *testing.T) {
	l := Ledger{ID: "l1", Title: "Viagem", FriendName: "Bruno", PublicSlug: "viagem-abc123"}
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
	l.Entries = []LedgerEntry{{ID: "e1", Date: NewDate(2024, 1, 1), PaidBy: Me, OwesTo: Friend, Status: "settled"}}
	if err := l.Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestLedgerJSONShape(t *testing.T) {
	l := Ledger{
		ID:                "ledger-1",
		Title:             "Viagem Natal 2024",
		FriendName:        "Bruno",
		PublicSlug:        "viagem-natal-2024-xyz789",
		PublicReadEnabled: true,
		Entries: []LedgerEntry{
			NewLedgerEntry("e1", NewDate(2024, 12, 24), Money{Cents: 35000}, Me, "Aluguel do carro"),
		},
	}
	b, err := json.Marshal(l.Shadow("uid-1"))
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "title", "friendName", "publicSlug", "publicReadEnabled", "entries", "ownerId"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("missing key %q in %s", key, b)
		}
	}

	var back PublicLedger
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Ledger, l) || back.OwnerID != "uid-1" {
		t.Fatalf("shadow round trip mismatch: %+v", back)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	l := Ledger{Entries: []LedgerEntry{{ID: "a", Status: StatusOpen}}}
	c := l.Clone()
	c.Entries[0].Status = StatusPaid
	if l.Entries[0].Status != StatusOpen {
		t.Fatal("clone aliases entries")
	}
}

func TestMonthKeys(t *testing.T) {
	now := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	if CurrentMonth(now) != "2025-03" {
		t.Fatalf("CurrentMonth = %q", CurrentMonth(now))
	}
	if _, err := ParseMonthKey("2025-13"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if m, err := ParseMonthKey("2025-02"); err != nil || m != "2025-02" {
		t.Fatalf("ParseMonthKey = %q, %v", m, err)
	}
}
