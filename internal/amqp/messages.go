package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger event actions carried on the wire.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LedgerEventMessage notifies downstream consumers that a ledger mutation
// committed. It is intentionally light: the worker re-reads the expense
// from storage, so only identifiers and the amount travel.
type LedgerEventMessage struct {
	Action      string    `json:"action"`
	ExpenseID   int64     `json:"expense_id"`
	UserID      int64     `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for one committed mutation.
func NewLedgerEventMessage(action string, expenseID, userID, amountCents int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Action:      action,
		ExpenseID:   expenseID,
		UserID:      userID,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

// Validate rejects messages with unknown actions or missing identifiers.
func (m *LedgerEventMessage) Validate() error {
	switch m.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("unknown ledger event action: %q", m.Action)
	}
	if m.ExpenseID <= 0 {
		return fmt.Errorf("ledger event missing expense id")
	}
	if m.UserID <= 0 {
		return fmt.Errorf("ledger event missing user id")
	}
	return nil
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
