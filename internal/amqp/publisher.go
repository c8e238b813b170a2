package amqp

import (
	"context"

	"ledger/internal/core"
)

// ExpensePublisher is the publishing half of Client.
type ExpensePublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
}

// Publisher forwards ledger inserts to the broker. It satisfies
// services.Observer.
type Publisher struct {
	client ExpensePublisher
}

func NewPublisher(client ExpensePublisher) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) OnExpenseCreated(ctx context.Context, e core.Expense) error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.PublishExpenseCreated(ctx, e)
}
