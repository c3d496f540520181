package user

import (
	"context"
	"fmt"
	"time"

	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
	"github.com/saaskit/authcore/internal/service/hasher"
)

// DefaultHasher is used unless the caller brings its own
var DefaultHasher hasher.PasswordHasher = hasher.BcryptHasher{}

// Service covers the user operations the token flows depend on.
// Anything beyond that (listing, profiles, admin CRUD) lives elsewhere.
type Service struct {
	hasher hasher.PasswordHasher
	users  repository.UserRepo
}

func NewService(h hasher.PasswordHasher, users repository.UserRepo) *Service {
	if h == nil {
		h = DefaultHasher
	}
	return &Service{hasher: h, users: users}
}

// Create registers a user; the published UserWasCreated event is what
// makes the token saga send the first verification link.
// Duplicate emails surface as apperrors.ErrEmailTaken.
func (s *Service) Create(ctx context.Context, email domain.Email, password string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("can't use this as password, error=%w", err)
	}

	u := domain.NewUser(email, hash)
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id domain.Id) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// SetUnverifiedEmail stages a new address; the saga reacts to the
// published event by issuing a fresh verification token
func (s *Service) SetUnverifiedEmail(ctx context.Context, userID domain.Id, email domain.Email) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	u.SetUnverifiedEmail(email)
	return s.users.Save(ctx, u)
}

// VerifyEmail promotes the user's staged address.
// The published UserEmailWasVerified event carries the correlation id of
// the caller's request, which is how the action-request saga finds the
// request to complete.
func (s *Service) VerifyEmail(ctx context.Context, userID domain.Id, email domain.Email) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := u.VerifyEmail(email, time.Now()); err != nil {
		return err
	}

	return s.users.Save(ctx, u)
}
