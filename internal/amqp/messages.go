package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

// ExpenseCreatedMessage announces a stored expense. It carries the whole
// record so consumers never need to read it back.
type ExpenseCreatedMessage struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Title     string    `json:"title"`
	Amount    string    `json:"amount"`
	Date      time.Time `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

var errMissingID = errors.New("message has no expense id")

// NewExpenseCreatedMessage builds the event for e.
func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:        e.ID,
		Seq:       e.Seq,
		Title:     e.Title,
		Amount:    e.Amount.String(),
		Date:      e.Date,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Expense rebuilds the domain record carried by the message.
func (m *ExpenseCreatedMessage) Expense() (core.Expense, error) {
	amount, err := core.ParseAmount(m.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return core.Expense{
		ID:     m.ID,
		Title:  m.Title,
		Amount: amount,
		Date:   m.Date,
		Seq:    m.Seq,
	}, nil
}

// ExpenseCreatedMessageFromJSON decodes a message and rejects ones without an id.
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errMissingID
	}
	return &msg, nil
}
