package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
)

func newManager(t *testing.T, cfg JWTConfig) *JWTManager {
	t.Helper()
	if cfg.SecretKey == "" {
		cfg.SecretKey = "test-secret"
	}
	m, err := NewJWTManager(cfg)
	require.NoError(t, err)
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Run("requires secret key", func(t *testing.T) {
		_, err := NewJWTManager(JWTConfig{})
		require.Error(t, err)
	})
}

func TestSignAccessToken(t *testing.T) {
	m := newManager(t, JWTConfig{AccessTTL: 15 * time.Minute})
	userID := domain.NewId()
	email := mustEmail(t, "user@example.com")

	signed, expiresAt, err := m.SignAccessToken(userID, email)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.Equal(t, userID.String(), claims.Subject)
	require.Equal(t, "user@example.com", claims.Email)
	require.NotEmpty(t, claims.ID, "jti must be set")
}

func TestActionToken(t *testing.T) {
	tokenID := domain.NewId()
	userID := domain.NewId()
	email := mustEmail(t, "user@example.com")

	t.Run("sign and parse roundtrip", func(t *testing.T) {
		m := newManager(t, JWTConfig{})

		signed, err := m.SignActionToken(domain.TokenTypeEmailVerification, tokenID, userID, email)
		require.NoError(t, err)

		claims, err := m.ParseActionToken(signed)
		require.NoError(t, err)
		require.Equal(t, "EMAIL_VERIFICATION", claims.Type)
		require.Equal(t, tokenID.String(), claims.ID)
		require.Equal(t, userID.String(), claims.UserID)
		require.Equal(t, "user@example.com", claims.Email)
	})

	t.Run("configured ttl bounds the link expiry", func(t *testing.T) {
		m := newManager(t, JWTConfig{ActionTTL: 10 * time.Minute})

		signed, err := m.SignActionToken(domain.TokenTypeEmailVerification, tokenID, userID, email)
		require.NoError(t, err)

		claims, err := m.ParseActionToken(signed)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(10*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		m := newManager(t, JWTConfig{ActionTTL: -time.Minute})

		signed, err := m.SignActionToken(domain.TokenTypeEmailVerification, tokenID, userID, email)
		require.NoError(t, err)

		_, err = m.ParseActionToken(signed)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("wrong key is invalid", func(t *testing.T) {
		m := newManager(t, JWTConfig{})
		other := newManager(t, JWTConfig{SecretKey: "other-secret"})

		signed, err := m.SignActionToken(domain.TokenTypeEmailVerification, tokenID, userID, email)
		require.NoError(t, err)

		_, err = other.ParseActionToken(signed)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("garbage is invalid", func(t *testing.T) {
		m := newManager(t, JWTConfig{})

		_, err := m.ParseActionToken("not-a-jwt")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestSecret(t *testing.T) {
	t.Run("new secrets differ", func(t *testing.T) {
		first, err := newSecret()
		require.NoError(t, err)
		second, err := newSecret()
		require.NoError(t, err)

		require.NotEqual(t, first, second)
		require.Len(t, first, 32, "16 random bytes hex encoded")
	})

	t.Run("hash is keyed and deterministic", func(t *testing.T) {
		require.Equal(t, hashSecret("key", "secret"), hashSecret("key", "secret"))
		require.NotEqual(t, hashSecret("key", "secret"), hashSecret("other", "secret"))
		require.NotEqual(t, hashSecret("key", "secret"), hashSecret("key", "other"))
	})
}
