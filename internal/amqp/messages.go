package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ShadowReconcileMessage asks the worker to re-apply the public shadow of a
// ledger from its owner copy. The slug lets the worker remove the shadow
// when the ledger is gone.
type ShadowReconcileMessage struct {
	UserID    string    `json:"userId"`
	LedgerID  string    `json:"ledgerId"`
	Slug      string    `json:"slug"`
	Timestamp time.Time `json:"timestamp"`
}

// NewShadowReconcileMessage creates a new reconcile message stamped now
func NewShadowReconcileMessage(uid, ledgerID, slug string) *ShadowReconcileMessage {
	return &ShadowReconcileMessage{
		UserID:    uid,
		LedgerID:  ledgerID,
		Slug:      slug,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ShadowReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ShadowReconcileMessageFromJSON decodes and checks a message body
func ShadowReconcileMessageFromJSON(data []byte) (*ShadowReconcileMessage, error) {
	var msg ShadowReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.LedgerID == "" {
		return nil, errors.New("reconcile message without user or ledger id")
	}
	return &msg, nil
}
