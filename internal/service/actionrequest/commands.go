package actionrequest

import (
	"context"
	"fmt"

	"github.com/saaskit/authcore/internal/cqrs"
	"github.com/saaskit/authcore/internal/domain"
)

const CommandUpdateActionRequestStatus = "auth.actionRequest.updateStatus"

// UpdateActionRequestStatusCommand is issued by the action-request saga
// when the underlying domain event lands. RequestID addresses the
// original request and doubles as the correlation id.
type UpdateActionRequestStatusCommand struct {
	RequestID string
	Status    domain.ActionRequestStatus
}

func (c UpdateActionRequestStatusCommand) Name() string {
	return CommandUpdateActionRequestStatus
}

func (c UpdateActionRequestStatusCommand) CorrelationID() string {
	return c.RequestID
}

// HandleUpdateStatus moves the addressed request to its terminal status
func (s *Service) HandleUpdateStatus(ctx context.Context, cmd cqrs.Command) error {
	c, ok := cmd.(UpdateActionRequestStatusCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T for %q", cmd, cmd.Name())
	}

	id, err := domain.ParseId(c.RequestID)
	if err != nil {
		return err
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := request.UpdateStatus(c.Status); err != nil {
		return err
	}

	return s.requests.Save(ctx, request)
}
