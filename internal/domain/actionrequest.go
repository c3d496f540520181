package domain

import (
	"fmt"
	"time"
)

type ActionRequestStatus string

const (
	ActionRequestProcessing ActionRequestStatus = "PROCESSING"
	ActionRequestCompleted  ActionRequestStatus = "COMPLETED"
	ActionRequestFailed     ActionRequestStatus = "FAILED"
)

type ActionKind string

const (
	ActionEmailVerification ActionKind = "EMAIL_VERIFICATION"
)

// ActionRequestData is fixed at creation and never mutated afterwards
type ActionRequestData struct {
	TokenID Id
	UserID  Id
	Email   Email
}

// ActionRequest tracks one asynchronous token-driven action.
// Its ID equals the correlation id of the originating request, which is
// how sagas address the terminal status update later.
type ActionRequest struct {
	recorder

	ID        Id
	Status    ActionRequestStatus
	Action    ActionKind
	CreatedAt time.Time
	Data      ActionRequestData
}

func NewActionRequest(id Id, action ActionKind, data ActionRequestData) *ActionRequest {
	now := time.Now().Truncate(time.Second)

	ar := &ActionRequest{
		ID:        id,
		Status:    ActionRequestProcessing,
		Action:    action,
		CreatedAt: now,
		Data:      data,
	}

	ar.record(Event{
		Name:       EventActionRequestWasCreated,
		EntityID:   ar.ID,
		OccurredAt: now,
		Data: map[string]any{
			"action": string(ar.Action),
			"status": string(ar.Status),
		},
		Snapshot: ar.snapshot(),
	})

	return ar
}

// UpdateStatus moves the request to a terminal status.
// Transitions are one-directional: once terminal, the request is frozen.
func (ar *ActionRequest) UpdateStatus(status ActionRequestStatus) error {
	if ar.Status != ActionRequestProcessing {
		return fmt.Errorf("action request %s is already %s", ar.ID, ar.Status)
	}
	if status != ActionRequestCompleted && status != ActionRequestFailed {
		return fmt.Errorf("status %s is not a terminal action request status", status)
	}

	ar.Status = status

	ar.record(Event{
		Name:       EventActionRequestStatusWasUpdated,
		EntityID:   ar.ID,
		OccurredAt: time.Now().Truncate(time.Second),
		Data: map[string]any{
			"action": string(ar.Action),
			"status": string(ar.Status),
		},
		Snapshot: ar.snapshot(),
	})

	return nil
}

func (ar *ActionRequest) snapshot() map[string]any {
	s := map[string]any{
		"id":        ar.ID.String(),
		"status":    string(ar.Status),
		"action":    string(ar.Action),
		"createdAt": ar.CreatedAt.Format(time.RFC3339),
		"tokenId":   ar.Data.TokenID.String(),
		"userId":    ar.Data.UserID.String(),
	}
	if !ar.Data.Email.IsZero() {
		s["email"] = ar.Data.Email.String()
	}
	return s
}
