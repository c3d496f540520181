package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
	"github.com/saaskit/authcore/internal/service/guard"
)

// Verifier consumes tokens: refresh tokens during rotation and
// action-request tokens during verification flows.
type Verifier struct {
	tokens repository.TokenRepo
}

func NewVerifier(tokens repository.TokenRepo) *Verifier {
	return &Verifier{tokens: tokens}
}

// Use loads the token fresh from the store and marks it used.
// Missing, expired, already used or foreign-owned tokens are all one
// Unauthorized to the caller.
func (v *Verifier) Use(ctx context.Context, tokenID domain.Id, userID domain.Id) (*domain.Token, error) {
	token, err := v.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, fmt.Errorf("token %s: %w", tokenID, apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	actor := guard.Actor{ID: userID.String()}
	if !guard.Allow(actor, token.UserID.String(), guard.ActionUse) {
		return nil, fmt.Errorf("token %s: %w", tokenID, apperrors.ErrUnauthorized)
	}

	if err := token.Use(userID, time.Now()); err != nil {
		return nil, err
	}

	if err := v.tokens.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("error while saving used token. Err: %w", err)
	}

	return token, nil
}
