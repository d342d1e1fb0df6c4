package messaging

import (
	"context"
	"errors"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// EventPublisher delivers persisted events to downstream consumers.
// Delivery is at least once; publishers may return an error but callers never roll back an append because of it.
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// EventHandler consumes one delivered event. A returned error asks the feed to redeliver.
type EventHandler interface {
	Handle(ctx context.Context, evt domain.Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, evt domain.Event) error

func (f EventHandlerFunc) Handle(ctx context.Context, evt domain.Event) error {
	return f(ctx, evt)
}

// Fanout publishes to every publisher in order and joins their errors.
type Fanout []EventPublisher

func (f Fanout) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
