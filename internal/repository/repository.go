package repository

import (
	"context"

	"github.com/saaskit/authcore/internal/domain"
)

// EventPublisher is how repositories push pulled aggregate events out.
// Persist and publish live in one Save call so callers can never do one
// without the other.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// Token repository interface
type TokenRepo interface {
	// Save persists the aggregate and publishes its pending events.
	// First save assigns the store surrogate key.
	Save(ctx context.Context, token *domain.Token) error

	// Get token by id or by the hash of its bearer secret
	// If token not found must return apperrors.ErrTokenNotFound
	GetByID(ctx context.Context, id domain.Id) (*domain.Token, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Token, error)

	// Delete every token of one rotation chain, returns deleted count.
	// This is how a whole chain is revoked (logout-all, password change)
	DeleteByRootTokenID(ctx context.Context, rootTokenID domain.Id) (int64, error)
}

// TokenHash correlation store interface.
// One write then one read per key: the read consumes the entry and a
// second read must return apperrors.ErrTokenHashNotFound.
type TokenHashRepo interface {
	Save(ctx context.Context, tokenHash string, value string) error
	ConsumeByTokenHash(ctx context.Context, tokenHash string) (string, error)
}

// ActionRequest repository interface.
// Entries are disposable coordination state with a bounded TTL, not a
// durable ledger.
type ActionRequestRepo interface {
	// Save persists the aggregate and publishes its pending events
	Save(ctx context.Context, request *domain.ActionRequest) error

	// Get request by id
	// If not found (or expired out) must return apperrors.ErrActionRequestNotFound
	GetByID(ctx context.Context, id domain.Id) (*domain.ActionRequest, error)
}

// User repository interface
type UserRepo interface {
	// Save persists the aggregate and publishes its pending events.
	// Duplicate email must return apperrors.ErrEmailTaken
	Save(ctx context.Context, user *domain.User) error

	// If user not found must return apperrors.ErrUserNotFound
	GetByID(ctx context.Context, id domain.Id) (*domain.User, error)
	GetByEmail(ctx context.Context, email domain.Email) (*domain.User, error)
}

// Storage bundles the repositories the services work against.
// Backends mix freely: relational for durable aggregates, cache for
// transient ones, memory for tests and local runs.
type Storage struct {
	Token         TokenRepo
	TokenHash     TokenHashRepo
	ActionRequest ActionRequestRepo
	User          UserRepo
}
