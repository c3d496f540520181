package domain

import (
	"fmt"
	"time"

	"github.com/saaskit/authcore/internal/apperrors"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User carries only what the token flows need: credentials, role and
// the verified/unverified email pair driving the verification saga.
type User struct {
	recorder

	ID              Id
	Email           Email
	UnverifiedEmail *Email
	PasswordHash    string
	Role            Role
	CreatedAt       time.Time
	EmailVerifiedAt *time.Time
}

// NewUser registers a user with a yet unverified email.
// Records UserWasCreated, which is what makes the token saga send the
// first verification link.
func NewUser(email Email, passwordHash string) *User {
	now := time.Now().Truncate(time.Second)

	unverified := email
	u := &User{
		ID:              NewId(),
		Email:           email,
		UnverifiedEmail: &unverified,
		PasswordHash:    passwordHash,
		Role:            RoleUser,
		CreatedAt:       now,
	}

	u.record(Event{
		Name:       EventUserWasCreated,
		EntityID:   u.ID,
		OccurredAt: now,
		Data: map[string]any{
			"email": email.String(),
		},
		Snapshot: u.snapshot(),
	})

	return u
}

// SetUnverifiedEmail stages a new address for verification
func (u *User) SetUnverifiedEmail(email Email) {
	u.UnverifiedEmail = &email

	u.record(Event{
		Name:       EventUserUnverifiedEmailWasSet,
		EntityID:   u.ID,
		OccurredAt: time.Now().Truncate(time.Second),
		Data: map[string]any{
			"email": email.String(),
		},
		Snapshot: u.snapshot(),
	})
}

// VerifyEmail promotes the staged address.
// The email must match the one staged for verification.
func (u *User) VerifyEmail(email Email, now time.Time) error {
	if u.UnverifiedEmail == nil || !u.UnverifiedEmail.Equal(email) {
		return fmt.Errorf("email %s is not pending verification: %w", email, apperrors.ErrUnauthorized)
	}

	verifiedAt := now.Truncate(time.Second)
	u.Email = email
	u.UnverifiedEmail = nil
	u.EmailVerifiedAt = &verifiedAt

	u.record(Event{
		Name:       EventUserEmailWasVerified,
		EntityID:   u.ID,
		OccurredAt: verifiedAt,
		Data: map[string]any{
			"email": email.String(),
		},
		Snapshot: u.snapshot(),
	})

	return nil
}

func (u *User) snapshot() map[string]any {
	s := map[string]any{
		"id":        u.ID.String(),
		"email":     u.Email.String(),
		"role":      string(u.Role),
		"createdAt": u.CreatedAt.Format(time.RFC3339),
	}
	if u.UnverifiedEmail != nil {
		s["unverifiedEmail"] = u.UnverifiedEmail.String()
	}
	if u.EmailVerifiedAt != nil {
		s["emailVerifiedAt"] = u.EmailVerifiedAt.Format(time.RFC3339)
	}
	return s
}
