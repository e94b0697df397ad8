package ledger

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"foco/internal/core"
)

// Summary is everything a ledger view shows, re-derived from scratch.
type Summary struct {
	Month        core.MonthKey      `json:"month"`
	Balance      int64              `json:"balanceCents"`
	Direction    Direction          `json:"direction"`
	Outstanding  core.Money         `json:"outstanding"`
	MonthEntries []core.LedgerEntry `json:"monthEntries"`
	MonthStats   Stats              `json:"monthStats"`
}

// Summarize derives the all-time balance and the month-scoped view.
func Summarize(l core.Ledger, month core.MonthKey) Summary {
	b := ComputeBalance(l.Entries)
	return Summary{
		Month:        month,
		Balance:      b.Cents,
		Direction:    b.Direction(),
		Outstanding:  b.Abs(),
		MonthEntries: EntriesForMonth(l.Entries, month),
		MonthStats:   MonthlyStats(l.Entries, month),
	}
}

// NewID returns an opaque identifier for ledgers, entries and transactions.
func NewID() string {
	return uuid.NewString()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// NewPublicSlug derives a share token from the title plus a random suffix,
// e.g. "viagem-natal-2024-3f9a1c".
func NewPublicSlug(title string) string {
	base := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-"), "-")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// New builds an empty private ledger.
func New(title, friendName string) core.Ledger {
	return core.Ledger{
		ID:                NewID(),
		Title:             strings.TrimSpace(title),
		FriendName:        strings.TrimSpace(friendName),
		PublicSlug:        NewPublicSlug(title),
		PublicReadEnabled: false,
		Entries:           []core.LedgerEntry{},
	}
}
