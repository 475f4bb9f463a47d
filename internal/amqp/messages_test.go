package amqp

import "testing"

func TestLedgerEventMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     LedgerEventMessage
		wantErr bool
	}{
		{"created", LedgerEventMessage{Action: ActionCreated, ExpenseID: 1, UserID: 1}, false},
		{"updated", LedgerEventMessage{Action: ActionUpdated, ExpenseID: 1, UserID: 1}, false},
		{"deleted", LedgerEventMessage{Action: ActionDeleted, ExpenseID: 1, UserID: 1}, false},
		{"unknown action", LedgerEventMessage{Action: "exploded", ExpenseID: 1, UserID: 1}, true},
		{"empty action", LedgerEventMessage{ExpenseID: 1, UserID: 1}, true},
		{"missing expense id", LedgerEventMessage{Action: ActionCreated, UserID: 1}, true},
		{"missing user id", LedgerEventMessage{Action: ActionCreated, ExpenseID: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedgerEventMessageRoundTrip(t *testing.T) {
	msg := NewLedgerEventMessage(ActionCreated, 42, 7, 2550)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}

	got, err := LedgerEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("LedgerEventMessageFromJSON() error: %v", err)
	}
	if got.Action != ActionCreated || got.ExpenseID != 42 || got.UserID != 7 || got.AmountCents != 2550 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp lost in round trip")
	}
}

func TestLedgerEventMessageFromJSONRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"action":`},
		{"unknown action", `{"action":"renamed","expense_id":1,"user_id":1}`},
		{"missing ids", `{"action":"created"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LedgerEventMessageFromJSON([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
