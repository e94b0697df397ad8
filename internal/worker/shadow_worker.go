package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"foco/internal/amqp"
)

// Reconciler re-applies a public shadow from its owner ledger;
// *gateway.Ledgers satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, uid, ledgerID, slug string) error
}

// ShadowWorker handles reconcile requests published when a save could not
// update a public shadow.
type ShadowWorker struct {
	reconciler Reconciler
	timeout    time.Duration
}

func NewShadowWorker(r Reconciler, timeout time.Duration) *ShadowWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShadowWorker{reconciler: r, timeout: timeout}
}

// Handle processes a single reconcile message from AMQP. A ledger that no
// longer exists has its shadow removed and the message is acknowledged.
func (w *ShadowWorker) Handle(ctx context.Context, msg *amqp.ShadowReconcileMessage) error {
	slog.InfoContext(ctx, "Processing shadow reconcile message",
		"ledger_id", msg.LedgerID,
		"slug", msg.Slug,
		"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond))

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.reconciler.Reconcile(ctx, msg.UserID, msg.LedgerID, msg.Slug); err != nil {
		return fmt.Errorf("reconcile ledger %s: %w", msg.LedgerID, err)
	}

	slog.InfoContext(ctx, "Public shadow reconciled",
		"ledger_id", msg.LedgerID,
		"slug", msg.Slug)
	return nil
}
