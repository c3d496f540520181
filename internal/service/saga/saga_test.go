package saga

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/saaskit/authcore/internal/cqrs"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/eventbus"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/service/actionrequest"
	"github.com/saaskit/authcore/internal/service/token"
)

type capturingDispatcher struct {
	commands []cqrs.Command
	err      error
}

func (d *capturingDispatcher) Dispatch(_ context.Context, cmd cqrs.Command) error {
	if d.err != nil {
		return d.err
	}
	d.commands = append(d.commands, cmd)
	return nil
}

func TestTokenSaga(t *testing.T) {
	userEvent := func(name string, email string) domain.Event {
		return domain.Event{
			Name:     name,
			EntityID: domain.NewId(),
			Data:     map[string]any{"email": email},
		}
	}

	t.Run("issues verification command on user creation", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		bus := eventbus.New("authcore", logger.NewNoOp(), nil)
		NewTokenSaga(dispatcher, logger.NewNoOp()).Register(bus)

		event := userEvent(domain.EventUserWasCreated, "user@example.com")
		require.NoError(t, bus.Publish(t.Context(), event))

		require.Len(t, dispatcher.commands, 1)
		cmd, ok := dispatcher.commands[0].(token.CreateEmailVerificationTokenCommand)
		require.True(t, ok)
		require.True(t, cmd.UserID.Equal(event.EntityID))
		require.Equal(t, "user@example.com", cmd.Email.String())
	})

	t.Run("issues verification command on email change", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		bus := eventbus.New("authcore", logger.NewNoOp(), nil)
		NewTokenSaga(dispatcher, logger.NewNoOp()).Register(bus)

		require.NoError(t, bus.Publish(t.Context(), userEvent(domain.EventUserUnverifiedEmailWasSet, "next@example.com")))

		require.Len(t, dispatcher.commands, 1)
	})

	t.Run("verification starts a fresh causal chain", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		bus := eventbus.New("authcore", logger.NewNoOp(), nil)
		NewTokenSaga(dispatcher, logger.NewNoOp()).Register(bus)

		event := userEvent(domain.EventUserWasCreated, "user@example.com")
		event.RequestID = "originating-request"
		require.NoError(t, bus.Publish(t.Context(), event))

		require.Len(t, dispatcher.commands, 1)
		correlation := dispatcher.commands[0].CorrelationID()
		require.NotEqual(t, "originating-request", correlation)
		_, err := uuid.Parse(correlation)
		require.NoError(t, err, "fresh correlation id must be a valid uuid")
	})

	t.Run("ignores events without email", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		bus := eventbus.New("authcore", logger.NewNoOp(), nil)
		NewTokenSaga(dispatcher, logger.NewNoOp()).Register(bus)

		// Handler error is logged and swallowed by the bus, nothing dispatched
		require.NoError(t, bus.Publish(t.Context(), domain.Event{
			Name:     domain.EventUserWasCreated,
			EntityID: domain.NewId(),
			Data:     map[string]any{},
		}))

		require.Empty(t, dispatcher.commands)
	})
}

func TestActionRequestSaga(t *testing.T) {
	t.Run("completes the originating request", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		bus := eventbus.New("authcore", logger.NewNoOp(), nil)
		NewActionRequestSaga(dispatcher, logger.NewNoOp()).Register(bus)

		event := domain.Event{
			Name:      domain.EventUserEmailWasVerified,
			EntityID:  domain.NewId(),
			RequestID: "originating-request",
			Data:      map[string]any{"email": "user@example.com"},
		}
		require.NoError(t, bus.Publish(t.Context(), event))

		require.Len(t, dispatcher.commands, 1)
		cmd, ok := dispatcher.commands[0].(actionrequest.UpdateActionRequestStatusCommand)
		require.True(t, ok)
		require.Equal(t, "originating-request", cmd.RequestID)
		require.Equal(t, domain.ActionRequestCompleted, cmd.Status)
	})

	t.Run("ignores events without correlation id", func(t *testing.T) {
		dispatcher := &capturingDispatcher{}
		bus := eventbus.New("authcore", logger.NewNoOp(), nil)
		NewActionRequestSaga(dispatcher, logger.NewNoOp()).Register(bus)

		require.NoError(t, bus.Publish(t.Context(), domain.Event{
			Name:     domain.EventUserEmailWasVerified,
			EntityID: domain.NewId(),
		}))

		require.Empty(t, dispatcher.commands, "nothing addressable, nothing dispatched")
	})
}
