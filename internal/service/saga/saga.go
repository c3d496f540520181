// Package saga holds the reactive glue between aggregates: stateless
// handlers that turn domain events into follow-up commands, carrying
// the correlation id across the async hop. There is no shared
// transaction here, consistency between aggregates is eventual.
package saga

import (
	"context"
	"fmt"

	"github.com/saaskit/authcore/internal/cqrs"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/eventbus"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/service/actionrequest"
	"github.com/saaskit/authcore/internal/service/token"
)

// Dispatcher is the inbound side of the command bus
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd cqrs.Command) error
}

// TokenSaga reacts to user lifecycle events by issuing verification
// tokens: a brand-new user and a changed email address both end with a
// fresh verification link.
type TokenSaga struct {
	commands Dispatcher
	logger   logger.Logger
}

func NewTokenSaga(commands Dispatcher, l logger.Logger) *TokenSaga {
	return &TokenSaga{commands: commands, logger: l}
}

// Register subscribes the saga to exactly the events it reacts to
func (s *TokenSaga) Register(bus *eventbus.Bus) {
	bus.Subscribe(domain.EventUserWasCreated, s.onEmailPending)
	bus.Subscribe(domain.EventUserUnverifiedEmailWasSet, s.onEmailPending)
}

// onEmailPending issues CreateEmailVerificationTokenCommand with a
// freshly generated correlation id: the verification link starts a new
// causal chain of its own.
func (s *TokenSaga) onEmailPending(ctx context.Context, event domain.Event) error {
	raw, ok := event.Data["email"].(string)
	if !ok {
		return fmt.Errorf("event %s without email payload", event.Name)
	}

	email, err := domain.ParseEmail(raw)
	if err != nil {
		return err
	}

	cmd := token.CreateEmailVerificationTokenCommand{
		RequestID: domain.NewId().String(),
		UserID:    event.EntityID,
		Email:     email,
	}

	s.logger.Debug("issuing email verification token",
		"userId", event.EntityID.String(),
		"requestId", cmd.RequestID,
	)

	return s.commands.Dispatch(ctx, cmd)
}

// ActionRequestSaga closes the verification loop: when the user's email
// is confirmed it completes the action request that started the flow,
// addressed via the correlation id propagated through the event chain.
type ActionRequestSaga struct {
	commands Dispatcher
	logger   logger.Logger
}

func NewActionRequestSaga(commands Dispatcher, l logger.Logger) *ActionRequestSaga {
	return &ActionRequestSaga{commands: commands, logger: l}
}

func (s *ActionRequestSaga) Register(bus *eventbus.Bus) {
	bus.Subscribe(domain.EventUserEmailWasVerified, s.onEmailVerified)
}

func (s *ActionRequestSaga) onEmailVerified(ctx context.Context, event domain.Event) error {
	if event.RequestID == "" {
		return fmt.Errorf("event %s without correlation id, can't address the action request", event.Name)
	}

	cmd := actionrequest.UpdateActionRequestStatusCommand{
		RequestID: event.RequestID,
		Status:    domain.ActionRequestCompleted,
	}

	s.logger.Debug("completing action request", "requestId", event.RequestID)

	return s.commands.Dispatch(ctx, cmd)
}
