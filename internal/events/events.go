package events

import (
	"context"
	"errors"

	"restopos/backend/internal/domain"
)

// Publisher delivers bill lifecycle events after the mutation has committed.
type Publisher interface {
	Publish(ctx context.Context, event domain.BillEvent) error
}

type Noop struct{}

func (Noop) Publish(_ context.Context, _ domain.BillEvent) error {
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event domain.BillEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
