package amqp

import (
	"encoding/json"
	"time"
)

// EventType names the write that produced an ExpenseEvent.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
	SalaryUpdated  EventType = "salary.updated"
)

// ExpenseEvent announces a committed write. Consumers re-read the store for
// the full state; the event only says what changed.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event stamped with the current time.
func NewExpenseEvent(t EventType, id int64, month string, amount float64) ExpenseEvent {
	return ExpenseEvent{
		Type:      t,
		ID:        id,
		Month:     month,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
