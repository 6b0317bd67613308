package amqp

import (
	"encoding/json"
	"time"
)

// Expense event actions carried on the queue.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEventMessage is a lightweight change notification. It carries only
// the action and the expense id; the export worker fetches the current row
// from the database, so a stale message never overwrites fresher data.
type ExpenseEventMessage struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage creates an event message for the given action and id.
func NewExpenseEventMessage(action string, id int64) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON parses a message from JSON bytes.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
