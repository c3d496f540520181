package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/repository"
	"github.com/saaskit/authcore/internal/service/guard"
	"github.com/saaskit/authcore/internal/service/hasher"
)

const (
	defaultLoginTokenTTL         = 30 * 24 * time.Hour
	defaultPasswordResetTokenTTL = time.Hour
	defaultVerificationTokenTTL  = 24 * time.Hour
)

type IssuerConfig struct {
	// Secret key for the token hash HMAC
	SecretKey string

	// Stored token lifetimes, defaults applied per type if unset
	LoginTokenTTL         time.Duration
	PasswordResetTokenTTL time.Duration
	VerificationTokenTTL  time.Duration

	// Hasher to compare user passwords, bcrypt if nil
	Hasher hasher.PasswordHasher

	// Logger for security-relevant issuance events, discards if nil
	Logger logger.Logger
}

// Issuer is the unified entry point for creating tokens.
// One call decides between the password-reset flow and the
// login/refresh flow based on which credentials are present.
type Issuer struct {
	key       string
	loginTTL  time.Duration
	resetTTL  time.Duration
	verifyTTL time.Duration

	log    logger.Logger
	hasher hasher.PasswordHasher
	tokens repository.TokenRepo
	hashes repository.TokenHashRepo
	users  repository.UserRepo
}

func NewIssuer(cfg IssuerConfig, tokens repository.TokenRepo, hashes repository.TokenHashRepo, users repository.UserRepo) (*Issuer, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if tokens == nil || hashes == nil || users == nil {
		return nil, errors.New("repos must not be nil")
	}

	h := cfg.Hasher
	if h == nil {
		h = hasher.BcryptHasher{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	issuer := &Issuer{
		key:       cfg.SecretKey,
		loginTTL:  cfg.LoginTokenTTL,
		resetTTL:  cfg.PasswordResetTokenTTL,
		verifyTTL: cfg.VerificationTokenTTL,
		log:       log,
		hasher:    h,
		tokens:    tokens,
		hashes:    hashes,
		users:     users,
	}
	if issuer.loginTTL == 0 {
		issuer.loginTTL = defaultLoginTokenTTL
	}
	if issuer.resetTTL == 0 {
		issuer.resetTTL = defaultPasswordResetTokenTTL
	}
	if issuer.verifyTTL == 0 {
		issuer.verifyTTL = defaultVerificationTokenTTL
	}

	return issuer, nil
}

type CreateTokenParams struct {
	Email domain.Email

	// Password or RefreshToken selects the login/refresh flow,
	// neither selects the password-reset flow
	Password     string
	RefreshToken string

	// Role requests elevation for the new session
	Role domain.Role

	// InvalidateTokens revokes every other token of the same chain
	InvalidateTokens bool
}

// CreateToken runs one of the issuance flows (see CreateTokenParams).
// Returns nil token without error when the flow must stay silent: a
// password reset for an unknown email never reveals account existence.
func (s *Issuer) CreateToken(ctx context.Context, p CreateTokenParams) (*domain.Token, error) {
	if p.Password == "" && p.RefreshToken == "" {
		return s.createPasswordResetToken(ctx, p.Email)
	}
	return s.createLoginToken(ctx, p)
}

func (s *Issuer) createPasswordResetToken(ctx context.Context, email domain.Email) (*domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, email)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Silent no-op, the response must not differ for unknown emails
		return nil, nil
	default:
		return nil, err
	}

	// Reset tokens correlate their hash to itself: the read model only
	// needs a display value, never the secret
	return s.mint(ctx, mintParams{
		typ:    domain.TokenTypePasswordReset,
		userID: user.ID,
		ttl:    s.resetTTL,
	})
}

func (s *Issuer) createLoginToken(ctx context.Context, p CreateTokenParams) (*domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, p.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, fmt.Errorf("unknown email: %w", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	var rootTokenID domain.Id

	switch {
	case p.RefreshToken != "":
		// Rotate: consume the presented token, keep its chain anchor
		used, err := s.useRefreshToken(ctx, p.RefreshToken, user.ID)
		if err != nil {
			return nil, err
		}
		rootTokenID = used.RootTokenID

	default:
		if err := s.hasher.Compare(user.PasswordHash, p.Password); err != nil {
			return nil, fmt.Errorf("bad credentials: %w", apperrors.ErrUnauthorized)
		}
	}

	elevate := p.Role != "" && p.Role != user.Role
	if elevate {
		actor := guard.Actor{ID: user.ID.String(), Role: user.Role}
		if !guard.Allow(actor, user.ID.String(), guard.ActionElevate) {
			return nil, fmt.Errorf("role %q requested: %w", p.Role, apperrors.ErrForbidden)
		}
	}

	if (p.InvalidateTokens || elevate) && !rootTokenID.IsZero() {
		if _, err := s.tokens.DeleteByRootTokenID(ctx, rootTokenID); err != nil {
			return nil, err
		}
		// The old chain is gone, the new token anchors a new one
		rootTokenID = domain.Id{}
	}

	return s.mint(ctx, mintParams{
		typ:             domain.TokenTypeLogin,
		userID:          user.ID,
		rootTokenID:     rootTokenID,
		ttl:             s.loginTTL,
		correlateSecret: true,
	})
}

func (s *Issuer) useRefreshToken(ctx context.Context, refreshToken string, userID domain.Id) (*domain.Token, error) {
	stored, err := s.tokens.GetByTokenHash(ctx, hashSecret(s.key, refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, fmt.Errorf("unknown refresh token: %w", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	if err := stored.Use(userID, time.Now()); err != nil {
		// A replayed refresh secret means it leaked somewhere, the whole
		// chain descending from the same root is burned
		if errors.Is(err, apperrors.ErrTokenIsUsed) {
			deleted, delErr := s.tokens.DeleteByRootTokenID(ctx, stored.RootTokenID)
			if delErr != nil {
				s.log.Error("refresh token reuse detected, chain revocation failed",
					"rootTokenId", stored.RootTokenID.String(), "error", delErr.Error())
			} else {
				s.log.Warn("refresh token reuse detected, chain revoked",
					"rootTokenId", stored.RootTokenID.String(), "deletedTokens", deleted)
			}
		}
		return nil, err
	}
	if err := s.tokens.Save(ctx, stored); err != nil {
		return nil, err
	}

	return stored, nil
}

type mintParams struct {
	typ         domain.TokenType
	userID      domain.Id
	rootTokenID domain.Id
	ttl         time.Duration

	// correlateSecret maps hash to the plaintext secret so the read
	// model can return it once, otherwise the hash maps to itself
	correlateSecret bool

	// email ends up in the created event payload (verification flows)
	email domain.Email
}

func (s *Issuer) mint(ctx context.Context, p mintParams) (*domain.Token, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	hash := hashSecret(s.key, secret)

	token := domain.NewToken(domain.NewTokenParams{
		TokenHash:   hash,
		UserID:      p.userID,
		RootTokenID: p.rootTokenID,
		Type:        p.typ,
		ExpiresAt:   time.Now().Add(p.ttl).Truncate(time.Second),
		Email:       p.email,
	})

	if err := s.tokens.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("error while saving token. Err: %w", err)
	}

	value := hash
	if p.correlateSecret {
		value = secret
	}
	if err := s.hashes.Save(ctx, hash, value); err != nil {
		return nil, fmt.Errorf("error while saving token hash entry. Err: %w", err)
	}

	return token, nil
}
