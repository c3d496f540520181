package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
)

type capturingBus struct {
	events []domain.Event
}

func (b *capturingBus) Publish(_ context.Context, events ...domain.Event) error {
	b.events = append(b.events, events...)
	return nil
}

func mustEmail(t *testing.T, raw string) domain.Email {
	t.Helper()
	email, err := domain.ParseEmail(raw)
	require.NoError(t, err)
	return email
}

func newLoginToken(userID domain.Id) *domain.Token {
	return domain.NewToken(domain.NewTokenParams{
		TokenHash: "hash-" + domain.NewId().String(),
		UserID:    userID,
		Type:      domain.TokenTypeLogin,
		ExpiresAt: time.Now().Add(time.Hour),
	})
}

func TestTokenRepo(t *testing.T) {
	t.Run("save assigns seq and publishes", func(t *testing.T) {
		bus := &capturingBus{}
		storage := NewStorage(bus)

		token := newLoginToken(domain.NewId())
		err := storage.Token.Save(t.Context(), token)

		require.NoError(t, err)
		require.Equal(t, int64(1), token.Seq)
		require.Len(t, bus.events, 1)
		require.Equal(t, domain.EventTokenWasCreated, bus.events[0].Name)

		other := newLoginToken(domain.NewId())
		require.NoError(t, storage.Token.Save(t.Context(), other))
		require.Equal(t, int64(2), other.Seq, "seq must grow per new token")
	})

	t.Run("get by id and by hash", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})
		token := newLoginToken(domain.NewId())
		require.NoError(t, storage.Token.Save(t.Context(), token))

		byID, err := storage.Token.GetByID(t.Context(), token.ID)
		require.NoError(t, err)
		require.True(t, byID.ID.Equal(token.ID))

		byHash, err := storage.Token.GetByTokenHash(t.Context(), token.TokenHash)
		require.NoError(t, err)
		require.True(t, byHash.ID.Equal(token.ID))

		_, err = storage.Token.GetByID(t.Context(), domain.NewId())
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)

		_, err = storage.Token.GetByTokenHash(t.Context(), "unknown")
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	})

	t.Run("resave keeps used_at write-once", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})
		userID := domain.NewId()
		token := newLoginToken(userID)
		require.NoError(t, storage.Token.Save(t.Context(), token))

		usedAt := time.Now()
		require.NoError(t, token.Use(userID, usedAt))
		require.NoError(t, storage.Token.Save(t.Context(), token))

		stale, err := storage.Token.GetByID(t.Context(), token.ID)
		require.NoError(t, err)
		first := *stale.UsedAt

		// A stale copy without UsedAt must not reset the stored one
		stale.UsedAt = nil
		require.NoError(t, storage.Token.Save(t.Context(), stale))

		current, err := storage.Token.GetByID(t.Context(), token.ID)
		require.NoError(t, err)
		require.NotNil(t, current.UsedAt)
		require.Equal(t, first, *current.UsedAt)
	})

	t.Run("stored copy does not re-publish pending events", func(t *testing.T) {
		bus := &capturingBus{}
		storage := NewStorage(bus)
		token := newLoginToken(domain.NewId())
		require.NoError(t, storage.Token.Save(t.Context(), token))
		published := len(bus.events)

		loaded, err := storage.Token.GetByID(t.Context(), token.ID)
		require.NoError(t, err)
		require.NoError(t, storage.Token.Save(t.Context(), loaded))

		require.Len(t, bus.events, published, "reload+save without changes must publish nothing")
	})

	t.Run("delete by root token id", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})
		userID := domain.NewId()

		first := newLoginToken(userID)
		require.NoError(t, storage.Token.Save(t.Context(), first))

		second := domain.NewToken(domain.NewTokenParams{
			TokenHash:   "hash-second",
			UserID:      userID,
			RootTokenID: first.RootTokenID,
			Type:        domain.TokenTypeLogin,
			ExpiresAt:   time.Now().Add(time.Hour),
		})
		require.NoError(t, storage.Token.Save(t.Context(), second))

		foreign := newLoginToken(userID)
		require.NoError(t, storage.Token.Save(t.Context(), foreign))

		deleted, err := storage.Token.DeleteByRootTokenID(t.Context(), first.RootTokenID)

		require.NoError(t, err)
		require.Equal(t, int64(2), deleted)

		_, err = storage.Token.GetByID(t.Context(), first.ID)
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		_, err = storage.Token.GetByID(t.Context(), foreign.ID)
		require.NoError(t, err, "tokens of other chains must survive")
	})
}

func TestTokenHashRepo(t *testing.T) {
	t.Run("write once read once", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})

		require.NoError(t, storage.TokenHash.Save(t.Context(), "hash", "secret"))

		value, err := storage.TokenHash.ConsumeByTokenHash(t.Context(), "hash")
		require.NoError(t, err)
		require.Equal(t, "secret", value)

		_, err = storage.TokenHash.ConsumeByTokenHash(t.Context(), "hash")
		require.ErrorIs(t, err, apperrors.ErrTokenHashNotFound, "second read must miss")
	})

	t.Run("second write fails", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})

		require.NoError(t, storage.TokenHash.Save(t.Context(), "hash", "secret"))
		require.Error(t, storage.TokenHash.Save(t.Context(), "hash", "other"))
	})

	t.Run("unknown hash misses", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})

		_, err := storage.TokenHash.ConsumeByTokenHash(t.Context(), "unknown")
		require.ErrorIs(t, err, apperrors.ErrTokenHashNotFound)
	})
}

func TestActionRequestRepo(t *testing.T) {
	t.Run("save and get", func(t *testing.T) {
		bus := &capturingBus{}
		storage := NewStorage(bus)

		request := domain.NewActionRequest(domain.NewId(), domain.ActionEmailVerification, domain.ActionRequestData{
			UserID: domain.NewId(),
		})
		require.NoError(t, storage.ActionRequest.Save(t.Context(), request))
		require.Len(t, bus.events, 1)

		loaded, err := storage.ActionRequest.GetByID(t.Context(), request.ID)
		require.NoError(t, err)
		require.Equal(t, domain.ActionRequestProcessing, loaded.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})

		_, err := storage.ActionRequest.GetByID(t.Context(), domain.NewId())
		require.ErrorIs(t, err, apperrors.ErrActionRequestNotFound)
	})
}

func TestUserRepo(t *testing.T) {
	t.Run("save and get", func(t *testing.T) {
		bus := &capturingBus{}
		storage := NewStorage(bus)

		u := domain.NewUser(mustEmail(t, "user@example.com"), "password-hash")
		require.NoError(t, storage.User.Save(t.Context(), u))
		require.Len(t, bus.events, 1)
		require.Equal(t, domain.EventUserWasCreated, bus.events[0].Name)

		byID, err := storage.User.GetByID(t.Context(), u.ID)
		require.NoError(t, err)
		require.True(t, byID.ID.Equal(u.ID))

		byEmail, err := storage.User.GetByEmail(t.Context(), mustEmail(t, "user@example.com"))
		require.NoError(t, err)
		require.True(t, byEmail.ID.Equal(u.ID))
	})

	t.Run("duplicate email", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})
		email := mustEmail(t, "user@example.com")

		require.NoError(t, storage.User.Save(t.Context(), domain.NewUser(email, "hash")))

		err := storage.User.Save(t.Context(), domain.NewUser(email, "other-hash"))
		require.ErrorIs(t, err, apperrors.ErrEmailTaken)
	})

	t.Run("get by unverified email", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})

		u := domain.NewUser(mustEmail(t, "user@example.com"), "hash")
		u.SetUnverifiedEmail(mustEmail(t, "next@example.com"))
		require.NoError(t, storage.User.Save(t.Context(), u))

		found, err := storage.User.GetByEmail(t.Context(), mustEmail(t, "next@example.com"))
		require.NoError(t, err)
		require.True(t, found.ID.Equal(u.ID))
	})

	t.Run("unknown user", func(t *testing.T) {
		storage := NewStorage(&capturingBus{})

		_, err := storage.User.GetByID(t.Context(), domain.NewId())
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)

		_, err = storage.User.GetByEmail(t.Context(), mustEmail(t, "nobody@example.com"))
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}
