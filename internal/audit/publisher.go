// Package audit publishes credential lifecycle events. The publisher fans
// events into a sink: Kafka in production, memory in tests, noop when no
// broker is configured.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink appends audit events somewhere durable.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher emits audit events, optionally through an async buffer so the
// request path never blocks on the sink.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues events and appends them in a background goroutine.
// A full buffer drops the event rather than blocking the caller.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.sink.Append(context.Background(), event); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to append audit event",
					"error", err,
					"action", event.Action,
					"credential_id", event.CredentialID,
				)
			}
		}
	}
}

// Close drains the async buffer and waits for pending events.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit publishes one event, stamping the time if unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.async {
		select {
		case p.events <- event:
			return nil
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", event.Action,
					"credential_id", event.CredentialID,
				)
			}
			return nil
		}
	}
	return p.sink.Append(ctx, event)
}
