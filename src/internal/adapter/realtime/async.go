package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

// Async decouples callers from slow sinks. Publish never blocks: when the
// queue is full the event is dropped and counted.
type Async struct {
	next    Publisher
	queue   chan domain.Event
	timeout time.Duration

	dropped atomic.Uint64
	once    sync.Once
	done    chan struct{}
}

func NewAsync(next Publisher, queueSize int, timeout time.Duration) *Async {
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Async{
		next:    next,
		queue:   make(chan domain.Event, queueSize),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

func (a *Async) Publish(_ context.Context, event domain.Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-a.done:
		a.dropped.Add(1)
		return nil
	default:
	}

	select {
	case a.queue <- event:
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			logger.Warn("realtime queue full, dropping event", logger.Fields{
				"type":    event.Type,
				"dropped": n,
			})
		}
	}
	return nil
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already queued.
func (a *Async) Run(ctx context.Context) {
	defer a.once.Do(func() { close(a.done) })

	for {
		select {
		case event := <-a.queue:
			a.deliver(event)
		case <-ctx.Done():
			a.once.Do(func() { close(a.done) })
			for {
				select {
				case event := <-a.queue:
					a.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *Async) deliver(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.next.Publish(ctx, event); err != nil {
		logger.Warn("realtime publish failed", logger.Fields{
			"type":      event.Type,
			"accountId": event.AccountID,
			"error":     err.Error(),
		})
	}
}
