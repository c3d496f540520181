package domain

import (
	"time"
)

// Domain event names, namespaced by aggregate
const (
	EventTokenWasCreated = "auth.token.wasCreated"
	EventTokenWasUsed    = "auth.token.wasUsed"

	EventActionRequestWasCreated       = "auth.actionRequest.wasCreated"
	EventActionRequestStatusWasUpdated = "auth.actionRequest.statusWasUpdated"

	EventUserWasCreated            = "user.wasCreated"
	EventUserUnverifiedEmailWasSet = "user.unverifiedEmailWasSet"
	EventUserEmailWasVerified      = "user.emailWasVerified"
)

// Event is an append-only record of something that happened to an aggregate.
// RequestID is left empty by aggregates and attached at the bus boundary.
type Event struct {
	Name       string
	EntityID   Id
	OccurredAt time.Time
	Data       map[string]any
	Snapshot   map[string]any
	RequestID  string
}

// recorder is the pending-events queue embedded in every aggregate
type recorder struct {
	pending []Event
}

func (r *recorder) record(e Event) {
	r.pending = append(r.pending, e)
}

// PullEvents returns recorded events in order and clears the queue.
// Repositories call it after a successful store write; a second call
// without new activity returns nil.
func (r *recorder) PullEvents() []Event {
	events := r.pending
	r.pending = nil
	return events
}
