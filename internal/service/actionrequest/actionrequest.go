package actionrequest

import (
	"context"
	"fmt"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
	"github.com/saaskit/authcore/internal/reqctx"
	"github.com/saaskit/authcore/internal/service/token"
)

// ActionTokenParser verifies a signed action link and returns its claims
type ActionTokenParser interface {
	ParseActionToken(signed string) (*token.ActionTokenClaims, error)
}

// TokenConsumer marks the underlying stored token used
type TokenConsumer interface {
	Use(ctx context.Context, tokenID domain.Id, userID domain.Id) (*domain.Token, error)
}

// EmailVerifier applies the verified email to the user aggregate
type EmailVerifier interface {
	VerifyEmail(ctx context.Context, userID domain.Id, email domain.Email) error
}

// Service is the email-verification entry point: it turns a signed
// action token into a tracked ActionRequest.
type Service struct {
	requests repository.ActionRequestRepo
	parser   ActionTokenParser
	consumer TokenConsumer
	verifier EmailVerifier
}

func NewService(requests repository.ActionRequestRepo, parser ActionTokenParser, consumer TokenConsumer, verifier EmailVerifier) *Service {
	return &Service{
		requests: requests,
		parser:   parser,
		consumer: consumer,
		verifier: verifier,
	}
}

// Create validates the signed token, consumes the underlying stored
// token and persists a PROCESSING request keyed by the caller's
// correlation id. Completion arrives asynchronously: the email
// verification publishes UserEmailWasVerified and the saga flips the
// request to COMPLETED addressed by that same correlation id.
func (s *Service) Create(ctx context.Context, signedToken string, requestID domain.Id) error {
	// Everything below must publish under the request's correlation id,
	// it is how the completing saga finds this request again
	ctx = reqctx.WithRequestID(ctx, requestID.String())

	claims, err := s.parser.ParseActionToken(signedToken)
	if err != nil {
		return err
	}

	if claims.Type != string(domain.TokenTypeEmailVerification) {
		return fmt.Errorf("action type %q: %w", claims.Type, apperrors.ErrUnauthorized)
	}

	tokenID, err := domain.ParseId(claims.ID)
	if err != nil {
		return fmt.Errorf("bad token id in claims: %w", apperrors.ErrInvalidToken)
	}
	userID, err := domain.ParseId(claims.UserID)
	if err != nil {
		return fmt.Errorf("bad user id in claims: %w", apperrors.ErrInvalidToken)
	}

	var email domain.Email
	if claims.Email != "" {
		email, err = domain.ParseEmail(claims.Email)
		if err != nil {
			return fmt.Errorf("bad email in claims: %w", apperrors.ErrInvalidToken)
		}
	}

	if _, err := s.consumer.Use(ctx, tokenID, userID); err != nil {
		return err
	}

	request := domain.NewActionRequest(requestID, domain.ActionEmailVerification, domain.ActionRequestData{
		TokenID: tokenID,
		UserID:  userID,
		Email:   email,
	})
	if err := s.requests.Save(ctx, request); err != nil {
		return err
	}

	return s.verifier.VerifyEmail(ctx, userID, email)
}
