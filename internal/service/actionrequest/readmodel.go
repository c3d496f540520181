package actionrequest

import (
	"context"

	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
)

// Projection is the client-facing view of an action request
type Projection struct {
	ID     string
	Action string
	Status string
}

type ReadModel struct {
	requests repository.ActionRequestRepo
}

func NewReadModel(requests repository.ActionRequestRepo) *ReadModel {
	return &ReadModel{requests: requests}
}

// Build projects the request; missing ids propagate as not found
func (m *ReadModel) Build(ctx context.Context, id domain.Id) (Projection, error) {
	request, err := m.requests.GetByID(ctx, id)
	if err != nil {
		return Projection{}, err
	}

	return Projection{
		ID:     request.ID.String(),
		Action: string(request.Action),
		Status: string(request.Status),
	}, nil
}
