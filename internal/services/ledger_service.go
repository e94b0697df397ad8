package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"foco/internal/core"
	"foco/internal/gateway"
	"foco/internal/ledger"
)

// LedgerStore is the persistence the ledger service needs; *gateway.Ledgers
// satisfies it.
type LedgerStore interface {
	List(ctx context.Context, uid string) []core.Ledger
	Get(ctx context.Context, uid, id string) (core.Ledger, error)
	Save(ctx context.Context, uid string, l core.Ledger) error
	Update(ctx context.Context, uid, id string, fn func(core.Ledger) (core.Ledger, error)) (core.Ledger, error)
	Delete(ctx context.Context, uid, id string) error
}

// EntryInput is what a user fills in for a ledger entry.
type EntryInput struct {
	Date        core.Date  `json:"date"`
	Amount      core.Money `json:"amount"`
	PaidBy      core.Party `json:"paidBy"`
	Description string     `json:"description"`
}

// LedgerService applies the accounting engine to stored ledgers. Every
// mutation reads the current ledger, derives the next one and saves it
// whole.
type LedgerService struct {
	ledgers LedgerStore
	now     func() time.Time
}

func NewLedgerService(ledgers LedgerStore) *LedgerService {
	return &LedgerService{ledgers: ledgers, now: time.Now}
}

func (s *LedgerService) List(ctx context.Context, uid string) []core.Ledger {
	return s.ledgers.List(ctx, uid)
}

func (s *LedgerService) Get(ctx context.Context, uid, id string) (core.Ledger, error) {
	return s.ledgers.Get(ctx, uid, id)
}

// Create starts an empty private ledger with a fresh share slug.
func (s *LedgerService) Create(ctx context.Context, uid, title, friendName string) (core.Ledger, error) {
	l := ledger.New(title, friendName)
	if err := l.Validate(); err != nil {
		return core.Ledger{}, err
	}
	err := s.ledgers.Save(ctx, uid, l)
	if err == nil {
		slog.InfoContext(ctx, "Ledger created", "ledger_id", l.ID, "slug", l.PublicSlug)
	}
	return l, err
}

func (s *LedgerService) Delete(ctx context.Context, uid, id string) error {
	return s.ledgers.Delete(ctx, uid, id)
}

// SetPublic toggles read access through the share link. When another user
// already shares under the ledger's slug a fresh slug is drawn once.
func (s *LedgerService) SetPublic(ctx context.Context, uid, id string, enabled bool) (core.Ledger, error) {
	l, err := s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		l.PublicReadEnabled = enabled
		return l, nil
	})
	if !errors.Is(err, core.ErrSlugTaken) {
		return l, err
	}
	slog.WarnContext(ctx, "Public slug taken, drawing a new one", "ledger_id", id, "slug", l.PublicSlug)
	return s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		l.PublicSlug = ledger.NewPublicSlug(l.Title)
		l.PublicReadEnabled = enabled
		return l, nil
	})
}

// AddEntry records a new open entry; a zero date means today.
func (s *LedgerService) AddEntry(ctx context.Context, uid, id string, in EntryInput) (core.Ledger, error) {
	return s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		e := core.NewLedgerEntry(ledger.NewID(), s.dateOrToday(in.Date), in.Amount, in.PaidBy, in.Description)
		if err := e.Validate(); err != nil {
			return l, err
		}
		l.Entries = ledger.AddEntry(l.Entries, e)
		return l, nil
	})
}

// UpdateEntry rewrites the fields of an entry and keeps its status.
func (s *LedgerService) UpdateEntry(ctx context.Context, uid, id, entryID string, in EntryInput) (core.Ledger, error) {
	return s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		status := core.StatusOpen
		for _, cur := range l.Entries {
			if cur.ID == entryID {
				status = cur.Status
			}
		}
		e := core.NewLedgerEntry(entryID, s.dateOrToday(in.Date), in.Amount, in.PaidBy, in.Description)
		e.Status = status
		if err := e.Validate(); err != nil {
			return l, err
		}
		entries, err := ledger.UpdateEntry(l.Entries, e)
		if err != nil {
			return l, err
		}
		l.Entries = entries
		return l, nil
	})
}

func (s *LedgerService) DeleteEntry(ctx context.Context, uid, id, entryID string) (core.Ledger, error) {
	return s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		l.Entries = ledger.DeleteEntry(l.Entries, entryID)
		return l, nil
	})
}

func (s *LedgerService) TogglePaid(ctx context.Context, uid, id, entryID string) (core.Ledger, error) {
	return s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		entries, err := ledger.TogglePaid(l.Entries, entryID)
		if err != nil {
			return l, err
		}
		l.Entries = entries
		return l, nil
	})
}

// SettleMonth marks every entry of month as paid.
func (s *LedgerService) SettleMonth(ctx context.Context, uid, id string, month core.MonthKey) (core.Ledger, error) {
	if _, err := core.ParseMonthKey(string(month)); err != nil {
		return core.Ledger{}, err
	}
	return s.mutate(ctx, uid, id, func(l core.Ledger) (core.Ledger, error) {
		l.Entries = ledger.SettleMonth(l.Entries, month)
		return l, nil
	})
}

// mutate applies fn to ledger id under the ledger's lock. When the save
// fails after the change was kept on the device the new ledger is returned
// alongside the error.
func (s *LedgerService) mutate(ctx context.Context, uid, id string, fn func(core.Ledger) (core.Ledger, error)) (core.Ledger, error) {
	l, err := s.ledgers.Update(ctx, uid, id, fn)
	if gateway.IsWriteError(err) || errors.Is(err, gateway.ErrShadowSync) {
		return l, fmt.Errorf("save ledger %s: %w", id, err)
	}
	return l, err
}

func (s *LedgerService) dateOrToday(d core.Date) core.Date {
	if d.IsZero() {
		return core.Today(s.now())
	}
	return d
}
