package realtime

import (
	"context"
	"errors"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

// Publisher delivers an event on a best-effort basis.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, domain.Event) error { return nil }
