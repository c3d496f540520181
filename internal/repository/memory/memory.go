// Package memory holds map-backed repository variants.
// Selected by configuration for local runs and used all over the tests:
// same contract as the postgres/cache backends, no external processes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
)

// NewStorage creates a full in-memory repository set
func NewStorage(events repository.EventPublisher) repository.Storage {
	return repository.Storage{
		Token:         &TokenRepo{events: events, tokens: map[string]domain.Token{}},
		TokenHash:     &TokenHashRepo{values: map[string]string{}},
		ActionRequest: &ActionRequestRepo{events: events, requests: map[string]domain.ActionRequest{}},
		User:          &UserRepo{events: events, users: map[string]domain.User{}},
	}
}

type TokenRepo struct {
	events repository.EventPublisher

	mu      sync.RWMutex
	nextSeq int64
	tokens  map[string]domain.Token
}

func (r *TokenRepo) Save(ctx context.Context, token *domain.Token) error {
	r.mu.Lock()
	if stored, ok := r.tokens[token.ID.String()]; ok {
		// keep used_at write-once like the relational store does
		if stored.UsedAt != nil {
			token.UsedAt = stored.UsedAt
		}
	} else {
		r.nextSeq++
		token.Seq = r.nextSeq
	}
	stored := *token
	stored.PullEvents() // the stored copy must not re-publish pending events
	r.tokens[token.ID.String()] = stored
	r.mu.Unlock()

	return r.events.Publish(ctx, token.PullEvents()...)
}

func (r *TokenRepo) GetByID(_ context.Context, id domain.Id) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[id.String()]
	if !ok {
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	}
	return &token, nil
}

func (r *TokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, token := range r.tokens {
		if token.TokenHash == tokenHash {
			t := token
			return &t, nil
		}
	}
	return nil, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
}

func (r *TokenRepo) DeleteByRootTokenID(_ context.Context, rootTokenID domain.Id) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, token := range r.tokens {
		if token.RootTokenID.Equal(rootTokenID) {
			delete(r.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

type TokenHashRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func (r *TokenHashRepo) Save(_ context.Context, tokenHash string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.values[tokenHash]; ok {
		return fmt.Errorf("token hash entry %q written already", tokenHash)
	}
	r.values[tokenHash] = value
	return nil
}

func (r *TokenHashRepo) ConsumeByTokenHash(_ context.Context, tokenHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.values[tokenHash]
	if !ok {
		return "", fmt.Errorf("repo error: %w", apperrors.ErrTokenHashNotFound)
	}
	delete(r.values, tokenHash)
	return value, nil
}

type ActionRequestRepo struct {
	events repository.EventPublisher

	mu       sync.RWMutex
	requests map[string]domain.ActionRequest
}

func (r *ActionRequestRepo) Save(ctx context.Context, request *domain.ActionRequest) error {
	r.mu.Lock()
	stored := *request
	stored.PullEvents()
	r.requests[request.ID.String()] = stored
	r.mu.Unlock()

	return r.events.Publish(ctx, request.PullEvents()...)
}

func (r *ActionRequestRepo) GetByID(_ context.Context, id domain.Id) (*domain.ActionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[id.String()]
	if !ok {
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrActionRequestNotFound)
	}
	return &request, nil
}

type UserRepo struct {
	events repository.EventPublisher

	mu    sync.RWMutex
	users map[string]domain.User
}

func (r *UserRepo) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	for id, stored := range r.users {
		if id != user.ID.String() && stored.Email.Equal(user.Email) {
			r.mu.Unlock()
			return fmt.Errorf("repo error: %w", apperrors.ErrEmailTaken)
		}
	}
	stored := *user
	stored.PullEvents()
	r.users[user.ID.String()] = stored
	r.mu.Unlock()

	return r.events.Publish(ctx, user.PullEvents()...)
}

func (r *UserRepo) GetByID(_ context.Context, id domain.Id) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id.String()]
	if !ok {
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email domain.Email) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email.Equal(email) {
			u := user
			return &u, nil
		}
		if user.UnverifiedEmail != nil && user.UnverifiedEmail.Equal(email) {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
}
