package actionrequest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/cqrs"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/eventbus"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/repository"
	"github.com/saaskit/authcore/internal/repository/memory"
	"github.com/saaskit/authcore/internal/service/actionrequest"
	"github.com/saaskit/authcore/internal/service/saga"
	"github.com/saaskit/authcore/internal/service/token"
	"github.com/saaskit/authcore/internal/service/user"
)

const testSecretKey = "actionrequest-test-key"

func mustEmail(t *testing.T, raw string) domain.Email {
	t.Helper()
	email, err := domain.ParseEmail(raw)
	require.NoError(t, err)
	return email
}

// fixture wires the real buses, sagas and memory storage together, so
// Create exercises the full verification loop end to end.
type fixture struct {
	service *actionrequest.Service
	reader  *actionrequest.ReadModel
	jwts    *token.JWTManager
	storage repository.Storage
	user    *domain.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	events := eventbus.New("authcore-test", logger.NewNoOp(), nil)
	storage := memory.NewStorage(events)

	jwts, err := token.NewJWTManager(token.JWTConfig{SecretKey: testSecretKey})
	require.NoError(t, err)

	verifier := token.NewVerifier(storage.Token)
	userService := user.NewService(nil, storage.User)

	service := actionrequest.NewService(storage.ActionRequest, jwts, verifier, userService)

	commands := cqrs.New()
	require.NoError(t, commands.Register(actionrequest.CommandUpdateActionRequestStatus, service.HandleUpdateStatus))
	saga.NewActionRequestSaga(commands, logger.NewNoOp()).Register(events)

	u := domain.NewUser(mustEmail(t, "user@example.com"), "password-hash")
	require.NoError(t, storage.User.Save(t.Context(), u))

	return fixture{
		service: service,
		reader:  actionrequest.NewReadModel(storage.ActionRequest),
		jwts:    jwts,
		storage: storage,
		user:    u,
	}
}

// signedVerificationToken stores an EMAIL_VERIFICATION token and signs
// the matching action link
func (f fixture) signedVerificationToken(t *testing.T) string {
	t.Helper()

	stored := domain.NewToken(domain.NewTokenParams{
		TokenHash: "hash-" + domain.NewId().String(),
		UserID:    f.user.ID,
		Type:      domain.TokenTypeEmailVerification,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, f.storage.Token.Save(t.Context(), stored))

	signed, err := f.jwts.SignActionToken(domain.TokenTypeEmailVerification, stored.ID, f.user.ID, f.user.Email)
	require.NoError(t, err)
	return signed
}

func TestCreate(t *testing.T) {
	t.Run("verifies email and completes the request", func(t *testing.T) {
		f := newFixture(t)
		signed := f.signedVerificationToken(t)
		requestID := domain.NewId()

		err := f.service.Create(t.Context(), signed, requestID)

		require.NoError(t, err)

		// The saga reacted to the published verification event and
		// completed the request addressed by the correlation id
		projection, err := f.reader.Build(t.Context(), requestID)
		require.NoError(t, err)
		require.Equal(t, requestID.String(), projection.ID)
		require.Equal(t, "EMAIL_VERIFICATION", projection.Action)
		require.Equal(t, "COMPLETED", projection.Status)

		verified, err := f.storage.User.GetByID(t.Context(), f.user.ID)
		require.NoError(t, err)
		require.NotNil(t, verified.EmailVerifiedAt)
		require.Nil(t, verified.UnverifiedEmail)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.Create(t.Context(), "not-a-jwt", domain.NewId())

		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("wrong action type", func(t *testing.T) {
		f := newFixture(t)

		signed, err := f.jwts.SignActionToken(domain.TokenTypeLogin, domain.NewId(), f.user.ID, f.user.Email)
		require.NoError(t, err)

		err = f.service.Create(t.Context(), signed, domain.NewId())

		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("token can be spent once", func(t *testing.T) {
		f := newFixture(t)
		signed := f.signedVerificationToken(t)

		require.NoError(t, f.service.Create(t.Context(), signed, domain.NewId()))

		err := f.service.Create(t.Context(), signed, domain.NewId())

		require.ErrorIs(t, err, apperrors.ErrUnauthorized, "underlying token is consumed")
	})

	t.Run("unknown stored token", func(t *testing.T) {
		f := newFixture(t)

		signed, err := f.jwts.SignActionToken(domain.TokenTypeEmailVerification, domain.NewId(), f.user.ID, f.user.Email)
		require.NoError(t, err)

		err = f.service.Create(t.Context(), signed, domain.NewId())

		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestReadModel(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.reader.Build(t.Context(), domain.NewId())

		require.ErrorIs(t, err, apperrors.ErrActionRequestNotFound)
	})
}

func TestHandleUpdateStatus(t *testing.T) {
	t.Run("completes addressed request", func(t *testing.T) {
		f := newFixture(t)

		request := domain.NewActionRequest(domain.NewId(), domain.ActionEmailVerification, domain.ActionRequestData{})
		require.NoError(t, f.storage.ActionRequest.Save(t.Context(), request))

		err := f.service.HandleUpdateStatus(t.Context(), actionrequest.UpdateActionRequestStatusCommand{
			RequestID: request.ID.String(),
			Status:    domain.ActionRequestCompleted,
		})

		require.NoError(t, err)

		stored, err := f.storage.ActionRequest.GetByID(t.Context(), request.ID)
		require.NoError(t, err)
		require.Equal(t, domain.ActionRequestCompleted, stored.Status)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.HandleUpdateStatus(t.Context(), actionrequest.UpdateActionRequestStatusCommand{
			RequestID: domain.NewId().String(),
			Status:    domain.ActionRequestCompleted,
		})

		require.ErrorIs(t, err, apperrors.ErrActionRequestNotFound)
	})

	t.Run("bad request id", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.HandleUpdateStatus(t.Context(), actionrequest.UpdateActionRequestStatusCommand{
			RequestID: "not-an-id",
			Status:    domain.ActionRequestCompleted,
		})

		require.ErrorIs(t, err, apperrors.ErrInvalidID)
	})
}
