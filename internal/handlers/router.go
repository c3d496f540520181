package handlers

import (
	"context"
	"net/http"

	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/handlers/middleware"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/service/actionrequest"
	"github.com/saaskit/authcore/internal/service/token"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	TokenIssuer        tokenIssuer
	TokenReader        tokenReader
	ActionRequests     actionRequestService
	ActionRequestsView actionRequestReader
	Users              userService
}

func NewRouter(s Services, logger logger.Logger) http.Handler {
	auth := http.NewServeMux()
	auth.Handle("POST /tokens", handleCreateToken(s.TokenIssuer, logger))
	auth.Handle("GET /tokens/{id}", handleGetTokenBundle(s.TokenReader, logger))
	auth.Handle("POST /action-requests", handleCreateActionRequest(s.ActionRequests, s.ActionRequestsView, logger))
	auth.Handle("GET /action-requests/{id}", handleGetActionRequest(s.ActionRequestsView, logger))

	root := http.NewServeMux()
	root.Handle("/auth/", http.StripPrefix("/auth", auth))
	root.Handle("POST /users", handleCreateUser(s.Users, logger))

	handler := chain(root,
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type tokenIssuer interface {
	// Create a token for one of the issuance flows.
	// Nil token without error means the flow stays silent on purpose.
	CreateToken(ctx context.Context, p token.CreateTokenParams) (*domain.Token, error)
}

type tokenReader interface {
	// Build the access/refresh bundle or the CHECK_EMAIL sentinel.
	// Has to return apperrors.ErrTokenHashNotFound when the refresh
	// secret was already claimed.
	Build(ctx context.Context, tokenID domain.Id, email domain.Email) (token.Bundle, error)
}

type actionRequestService interface {
	// Create an action request from a signed action token.
	// Has to return apperrors.ErrInvalidToken or ErrUnauthorized for
	// tokens that can't be accepted.
	Create(ctx context.Context, signedToken string, requestID domain.Id) error
}

type actionRequestReader interface {
	// Has to return apperrors.ErrActionRequestNotFound for unknown ids
	Build(ctx context.Context, id domain.Id) (actionrequest.Projection, error)
}

type userService interface {
	// Has to return apperrors.ErrEmailTaken for duplicate emails
	Create(ctx context.Context, email domain.Email, password string) (*domain.User, error)
}
