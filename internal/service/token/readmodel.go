package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
)

// ActionCheckEmail masks every non-login lookup: the caller can't tell
// a password-reset or verification token id from a miss
const ActionCheckEmail = "CHECK_EMAIL"

// Bundle is the token read model returned to an authenticated caller
type Bundle struct {
	Action       string
	AccessToken  string
	TTLSeconds   int64
	ExpiresAt    time.Time
	RefreshToken string
}

// ReadModel builds the access/refresh bundle for a created login token
type ReadModel struct {
	tokens repository.TokenRepo
	hashes repository.TokenHashRepo
	jwts   *JWTManager
}

func NewReadModel(tokens repository.TokenRepo, hashes repository.TokenHashRepo, jwts *JWTManager) *ReadModel {
	return &ReadModel{tokens: tokens, hashes: hashes, jwts: jwts}
}

// Build resolves the token id into the access/refresh bundle.
// Missing ids and non-login types both project to the CHECK_EMAIL
// sentinel (enumeration-safe). A missing hash entry for a login token
// is a hard error: that response was consumed already.
func (m *ReadModel) Build(ctx context.Context, tokenID domain.Id, email domain.Email) (Bundle, error) {
	token, err := m.tokens.GetByID(ctx, tokenID)

	switch {
	case err == nil && token.Type == domain.TokenTypeLogin:
	case err == nil:
		return Bundle{Action: ActionCheckEmail}, nil
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return Bundle{Action: ActionCheckEmail}, nil
	default:
		return Bundle{}, err
	}

	access, expiresAt, err := m.jwts.SignAccessToken(token.UserID, email)
	if err != nil {
		return Bundle{}, err
	}

	refresh, err := m.hashes.ConsumeByTokenHash(ctx, token.TokenHash)
	if err != nil {
		return Bundle{}, fmt.Errorf("refresh token already claimed: %w", err)
	}

	return Bundle{
		AccessToken:  access,
		TTLSeconds:   int64(m.jwts.accessTTL.Seconds()),
		ExpiresAt:    expiresAt,
		RefreshToken: refresh,
	}, nil
}
