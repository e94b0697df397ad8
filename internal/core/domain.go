package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Me     Party = "me"
	Friend Party = "friend"
)

const (
	StatusOpen EntryStatus = "open"
	StatusPaid EntryStatus = "paid"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	TransactionType string
	Party           string
	EntryStatus     string
	Theme           string

	// Date is a calendar day, serialized as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID         string          `json:"id"`
		Date       Date            `json:"date"`
		Type       TransactionType `json:"type"`
		Value      Money           `json:"value"`
		Category   string          `json:"category"`
		Person     string          `json:"person,omitempty"`
		Note       string          `json:"note,omitempty"`
		IsPjSalary bool            `json:"isPjSalary,omitempty"`
	}

	LedgerEntry struct {
		ID          string      `json:"id"`
		Date        Date        `json:"date"`
		Amount      Money       `json:"amount"`
		PaidBy      Party       `json:"paidBy"`
		OwesTo      Party       `json:"owesTo"`
		Description string      `json:"description"`
		Status      EntryStatus `json:"status"`
	}

	Ledger struct {
		ID                string        `json:"id"`
		Title             string        `json:"title"`
		FriendName        string        `json:"friendName"`
		PublicSlug        string        `json:"publicSlug"`
		PublicReadEnabled bool          `json:"publicReadEnabled"`
		Entries           []LedgerEntry `json:"entries"`
	}

	// PublicLedger is the shadow copy kept under public_ledgers/{slug}.
	PublicLedger struct {
		Ledger
		OwnerID string `json:"ownerId"`
	}

	AuthState struct {
		IsAuthenticated bool   `json:"isAuthenticated"`
		UserID          string `json:"userId,omitempty"`
		UserEmail       string `json:"userEmail,omitempty"`
		UserName        string `json:"userName,omitempty"`
		AvatarURL       string `json:"avatarUrl,omitempty"`
		LastLogin       int64  `json:"lastLogin,omitempty"`
	}
)

var (
	ErrEmptyID            = errors.New("empty id")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidParty       = errors.New("invalid party")
	ErrOwesToMismatch     = errors.New("owesTo must be the other party")
	ErrInvalidStatus      = errors.New("invalid entry status")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyFriendName    = errors.New("empty friend name")
	ErrEmptySlug          = errors.New("empty public slug")
	ErrInvalidTheme       = errors.New("invalid theme")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")

	// ErrSlugTaken means another user already shares a ledger under the slug.
	ErrSlugTaken = errors.New("public slug already in use")
)

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the calendar day of now in UTC.
func Today(now time.Time) Date {
	y, m, d := now.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthKey returns the YYYY-MM bucket of the date.
func (d Date) MonthKey() MonthKey {
	if d.IsZero() {
		return ""
	}
	return MonthKey(d.String()[:7])
}

// InMonth reports whether the date string starts with the month key.
func (d Date) InMonth(m MonthKey) bool {
	return m != "" && strings.HasPrefix(d.String(), string(m))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Other returns the complement party.
func (p Party) Other() Party {
	if p == Me {
		return Friend
	}
	return Me
}

func (p Party) Valid() bool {
	return p == Me || p == Friend
}

func (s EntryStatus) Valid() bool {
	return s == StatusOpen || s == StatusPaid
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// RecordID identifies the transaction in stores and caches.
func (t Transaction) RecordID() string { return t.ID }

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// NewLedgerEntry builds an open entry with owesTo derived from paidBy.
func NewLedgerEntry(id string, date Date, amount Money, paidBy Party, description string) LedgerEntry {
	return LedgerEntry{
		ID:          id,
		Date:        date,
		Amount:      amount,
		PaidBy:      paidBy,
		OwesTo:      paidBy.Other(),
		Description: strings.TrimSpace(description),
		Status:      StatusOpen,
	}
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.PaidBy.Valid() {
		return ErrInvalidParty
	}
	if e.OwesTo != e.PaidBy.Other() {
		return ErrOwesToMismatch
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// RecordID identifies the ledger in stores and caches.
func (l Ledger) RecordID() string { return l.ID }

func (l Ledger) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(l.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(l.FriendName) == "" {
		return ErrEmptyFriendName
	}
	if strings.TrimSpace(l.PublicSlug) == "" {
		return ErrEmptySlug
	}
	for i, e := range l.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, e.ID, err)
		}
	}
	return nil
}

// Clone returns a copy whose entry slice does not alias the receiver's.
func (l Ledger) Clone() Ledger {
	out := l
	if l.Entries != nil {
		out.Entries = append([]LedgerEntry(nil), l.Entries...)
	}
	return out
}

// Shadow builds the public copy owned by ownerID.
func (l Ledger) Shadow(ownerID string) PublicLedger {
	return PublicLedger{Ledger: l.Clone(), OwnerID: ownerID}
}

// IsValidationError reports whether err comes from domain validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyID, ErrInvalidDate, ErrInvalidMonth, ErrNegativeAmount, ErrInvalidAmount,
		ErrInvalidType, ErrEmptyCategory, ErrInvalidParty, ErrOwesToMismatch,
		ErrInvalidStatus, ErrEmptyTitle, ErrEmptyFriendName, ErrEmptySlug,
		ErrInvalidTheme, ErrDescriptionTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
