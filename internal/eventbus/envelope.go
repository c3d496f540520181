package eventbus

import (
	"context"
	"time"

	"github.com/saaskit/authcore/internal/domain"
)

// OutboundPublisher is the port for external pub/sub fan-out.
// Keeps broker and client concerns out of the bus itself.
type OutboundPublisher interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// Envelope is the external wire shape of a published event
type Envelope struct {
	Source     string    `json:"Source"`
	DetailType string    `json:"DetailType"`
	Detail     Detail    `json:"Detail"`
	Time       time.Time `json:"Time"`
}

type Detail struct {
	RequestID   string         `json:"requestId"`
	AggregateID string         `json:"aggregateId"`
	Entity      map[string]any `json:"entity,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

func NewEnvelope(source string, event domain.Event) Envelope {
	return Envelope{
		Source:     source,
		DetailType: event.Name,
		Detail: Detail{
			RequestID:   event.RequestID,
			AggregateID: event.EntityID.String(),
			Entity:      event.Snapshot,
			Data:        event.Data,
		},
		Time: event.OccurredAt,
	}
}
