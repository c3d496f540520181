package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saaskit/authcore/internal/apperrors"
)

func TestNewToken(t *testing.T) {
	userID := NewId()
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	t.Run("self-roots when no chain given", func(t *testing.T) {
		token := NewToken(NewTokenParams{
			TokenHash: "hash",
			UserID:    userID,
			Type:      TokenTypeLogin,
			ExpiresAt: expiresAt,
		})

		require.False(t, token.ID.IsZero())
		require.True(t, token.RootTokenID.Equal(token.ID), "token must anchor its own chain")
		require.Equal(t, int64(0), token.Seq, "surrogate key is assigned by the store, not here")
		require.Nil(t, token.UsedAt)
	})

	t.Run("keeps given chain anchor", func(t *testing.T) {
		rootID := NewId()

		token := NewToken(NewTokenParams{
			TokenHash:   "hash",
			UserID:      userID,
			RootTokenID: rootID,
			Type:        TokenTypeLogin,
			ExpiresAt:   expiresAt,
		})

		require.True(t, token.RootTokenID.Equal(rootID))
	})

	t.Run("records created event", func(t *testing.T) {
		email, err := ParseEmail("user@example.com")
		require.NoError(t, err)

		token := NewToken(NewTokenParams{
			TokenHash: "hash",
			UserID:    userID,
			Type:      TokenTypeEmailVerification,
			ExpiresAt: expiresAt,
			Email:     email,
		})

		events := token.PullEvents()
		require.Len(t, events, 1)
		require.Equal(t, EventTokenWasCreated, events[0].Name)
		require.True(t, events[0].EntityID.Equal(token.ID))
		require.Equal(t, "EMAIL_VERIFICATION", events[0].Data["type"])
		require.Equal(t, "user@example.com", events[0].Data["email"])

		require.Empty(t, token.PullEvents(), "second pull must return nothing")
	})
}

func TestTokenUse(t *testing.T) {
	userID := NewId()
	now := time.Now()

	newToken := func() *Token {
		token := NewToken(NewTokenParams{
			TokenHash: "hash",
			UserID:    userID,
			Type:      TokenTypeLogin,
			ExpiresAt: now.Add(time.Hour),
		})
		token.PullEvents()
		return token
	}

	t.Run("valid token used once", func(t *testing.T) {
		token := newToken()

		err := token.Use(userID, now)

		require.NoError(t, err)
		require.NotNil(t, token.UsedAt)

		events := token.PullEvents()
		require.Len(t, events, 1)
		require.Equal(t, EventTokenWasUsed, events[0].Name)
	})

	t.Run("second use fails and keeps first timestamp", func(t *testing.T) {
		token := newToken()
		require.NoError(t, token.Use(userID, now))
		firstUsedAt := *token.UsedAt
		token.PullEvents()

		err := token.Use(userID, now.Add(time.Minute))

		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Equal(t, firstUsedAt, *token.UsedAt)
		require.Empty(t, token.PullEvents(), "failed use must not record events")
	})

	t.Run("expired token", func(t *testing.T) {
		token := newToken()

		err := token.Use(userID, now.Add(2*time.Hour))

		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Nil(t, token.UsedAt)
	})

	t.Run("foreign user", func(t *testing.T) {
		token := newToken()

		err := token.Use(NewId(), now)

		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Nil(t, token.UsedAt)
	})
}

func TestTokenIsValid(t *testing.T) {
	userID := NewId()
	now := time.Now()

	token := NewToken(NewTokenParams{
		TokenHash: "hash",
		UserID:    userID,
		Type:      TokenTypeLogin,
		ExpiresAt: now.Add(time.Hour),
	})

	require.True(t, token.IsValid(userID, now))
	require.False(t, token.IsValid(NewId(), now), "foreign user")
	require.False(t, token.IsValid(userID, now.Add(time.Hour)), "expiry boundary is exclusive")
}
