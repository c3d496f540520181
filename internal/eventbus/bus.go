package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/reqctx"
)

// HandlerFunc reacts to one published domain event
type HandlerFunc func(ctx context.Context, event domain.Event) error

// Enricher may mutate the event payload right before publication.
// Used to attach artifacts that only the publish boundary may mint,
// e.g. the signed email-verification JWT on TokenWasCreated.
type Enricher func(ctx context.Context, event *domain.Event) error

// Bus is the in-process event dispatcher.
// Handlers are looked up by the event's declared name; every handler
// error is logged and swallowed so one failed projection never stops
// the stream. Events optionally fan out to an external publisher too.
type Bus struct {
	source   string
	logger   logger.Logger
	outbound OutboundPublisher

	mu        sync.RWMutex
	handlers  map[string][]HandlerFunc
	enrichers map[string][]Enricher
}

// New creates a bus tagged with the system name used as envelope Source.
// outbound may be nil when no external fan-out is configured.
func New(source string, l logger.Logger, outbound OutboundPublisher) *Bus {
	return &Bus{
		source:    source,
		logger:    l,
		outbound:  outbound,
		handlers:  map[string][]HandlerFunc{},
		enrichers: map[string][]Enricher{},
	}
}

// Subscribe registers a handler for the event name
func (b *Bus) Subscribe(eventName string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], h)
}

// Enrich registers a pre-publish payload hook for the event name
func (b *Bus) Enrich(eventName string, e Enricher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enrichers[eventName] = append(b.enrichers[eventName], e)
}

// Publish dispatches events in the given order.
// The correlation id is attached here from the caller's context, not by
// the aggregate that recorded the event. Enrichment and outbound
// publication failures propagate, subscriber failures do not.
func (b *Bus) Publish(ctx context.Context, events ...domain.Event) error {
	for i := range events {
		event := events[i]
		if event.RequestID == "" {
			event.RequestID = reqctx.RequestID(ctx)
		}

		b.mu.RLock()
		enrichers := b.enrichers[event.Name]
		handlers := b.handlers[event.Name]
		b.mu.RUnlock()

		for _, enrich := range enrichers {
			if err := enrich(ctx, &event); err != nil {
				return fmt.Errorf("error while enriching event %q: %w", event.Name, err)
			}
		}

		if b.outbound != nil {
			if err := b.outbound.Publish(ctx, NewEnvelope(b.source, event)); err != nil {
				return fmt.Errorf("error while publishing event %q: %w", event.Name, err)
			}
		}

		for _, handle := range handlers {
			if err := handle(ctx, event); err != nil {
				b.logger.Error(
					"event handler failed, skipping",
					"event", event.Name,
					"entityId", event.EntityID.String(),
					"requestId", event.RequestID,
					"error", err.Error(),
				)
			}
		}
	}

	return nil
}
