package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
)

const defaultEmailVerificationTokenTTL = 300 * time.Second

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// ActionTokenClaims is the payload of a signed, time-boxed action link
// (e.g. an email-verification URL). It references the stored token by
// id, the raw token hash never leaves the system.
type ActionTokenClaims struct {
	jwt.RegisteredClaims
	Type   string `json:"type"`
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

type JWTManager struct {
	// Secret key to sign token payloads
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and action token lifetimes
	accessTTL time.Duration
	actionTTL time.Duration
}

type JWTConfig struct {
	SecretKey string
	AccessTTL time.Duration

	// ActionTTL bounds email-verification links, 300s if unset
	ActionTTL time.Duration
}

func NewJWTManager(cfg JWTConfig) (*JWTManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	actionTTL := cfg.ActionTTL
	if actionTTL == 0 {
		actionTTL = defaultEmailVerificationTokenTTL
	}

	return &JWTManager{
		key:       cfg.SecretKey,
		alg:       jwt.SigningMethodHS256,
		accessTTL: cfg.AccessTTL,
		actionTTL: actionTTL,
	}, nil
}

// SignAccessToken mints the short-lived access JWT for the user
func (m *JWTManager) SignAccessToken(userID domain.Id, email domain.Email) (signed string, expiresAt time.Time, err error) {
	now := time.Now().Truncate(time.Second)
	expiresAt = now.Add(m.accessTTL)

	token := jwt.NewWithClaims(m.alg, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email.String(),
	})

	signed, err = token.SignedString([]byte(m.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return signed, expiresAt, nil
}

// SignActionToken mints the emailable action JWT referencing a stored token
func (m *JWTManager) SignActionToken(action domain.TokenType, tokenID, userID domain.Id, email domain.Email) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(m.alg, ActionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.actionTTL)),
		},
		Type:   string(action),
		ID:     tokenID.String(),
		UserID: userID.String(),
		Email:  email.String(),
	})

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return "", fmt.Errorf("error while signing action token. Err: %w", err)
	}

	return signed, nil
}

// ParseActionToken verifies signature and expiry of a signed action token.
// Expired, not-yet-valid and forged tokens all collapse into one
// ErrInvalidToken: callers see "invalid", the cause stays wrapped for logging.
func (m *JWTManager) ParseActionToken(signed string) (*ActionTokenClaims, error) {
	claims := &ActionTokenClaims{}
	token, err := jwt.ParseWithClaims(
		signed,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("error parsing action token (%v): %w", err, apperrors.ErrInvalidToken)
	}

	return claims, nil
}
