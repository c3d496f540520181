package domain

import (
	"fmt"
	"time"

	"github.com/saaskit/authcore/internal/apperrors"
)

type TokenType string

const (
	TokenTypeLogin             TokenType = "LOGIN"
	TokenTypePasswordReset     TokenType = "PASSWORD_RESET"
	TokenTypeEmailVerification TokenType = "EMAIL_VERIFICATION"
)

// Token is a single-use bearer credential: login/refresh, password
// reset or email verification. Only the hash of the bearer secret is
// ever kept here.
type Token struct {
	recorder

	// Seq is the store surrogate key, zero until first persistence
	Seq int64

	ID          Id
	TokenHash   string
	UserID      Id
	RootTokenID Id
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Type        TokenType
	UsedAt      *time.Time
}

type NewTokenParams struct {
	TokenHash string
	UserID    Id
	// RootTokenID anchors the rotation chain.
	// Leave zero to start a new chain with the token as its own root.
	RootTokenID Id
	Type        TokenType
	ExpiresAt   time.Time

	// Email ends up in the TokenWasCreated payload so the publish
	// boundary can mint verification links without loading the user
	Email Email
}

// NewToken creates the aggregate and records TokenWasCreated.
// The event data may be enriched at the publish boundary (e.g. with a
// signed verification JWT), the aggregate itself never holds secrets.
func NewToken(p NewTokenParams) *Token {
	now := time.Now().Truncate(time.Second)

	t := &Token{
		ID:          NewId(),
		TokenHash:   p.TokenHash,
		UserID:      p.UserID,
		RootTokenID: p.RootTokenID,
		CreatedAt:   now,
		ExpiresAt:   p.ExpiresAt,
		Type:        p.Type,
	}
	if t.RootTokenID.IsZero() {
		t.RootTokenID = t.ID
	}

	data := map[string]any{
		"type":   string(t.Type),
		"userId": t.UserID.String(),
	}
	if !p.Email.IsZero() {
		data["email"] = p.Email.String()
	}

	t.record(Event{
		Name:       EventTokenWasCreated,
		EntityID:   t.ID,
		OccurredAt: now,
		Data:       data,
		Snapshot:   t.snapshot(),
	})

	return t
}

// IsValid reports whether the token may still be consumed:
// unexpired, unused and owned by userID
func (t *Token) IsValid(userID Id, now time.Time) bool {
	switch {
	case t.UsedAt != nil:
		return false
	case !t.ExpiresAt.After(now):
		return false
	case !t.UserID.Equal(userID):
		return false
	}
	return true
}

// Use marks the token consumed at 'now' and records TokenWasUsed.
// It can succeed at most once; invalid state never mutates UsedAt.
// Every failure wraps ErrUnauthorized, the specific cause stays
// matchable for callers that care.
func (t *Token) Use(userID Id, now time.Time) error {
	switch {
	case t.UsedAt != nil:
		return fmt.Errorf("token %s: %w: %w", t.ID, apperrors.ErrUnauthorized, apperrors.ErrTokenIsUsed)
	case !t.ExpiresAt.After(now):
		return fmt.Errorf("token %s: %w: %w", t.ID, apperrors.ErrUnauthorized, apperrors.ErrTokenExpired)
	case !t.UserID.Equal(userID):
		return fmt.Errorf("token %s is owned by someone else: %w", t.ID, apperrors.ErrUnauthorized)
	}

	usedAt := now.Truncate(time.Second)
	t.UsedAt = &usedAt

	t.record(Event{
		Name:       EventTokenWasUsed,
		EntityID:   t.ID,
		OccurredAt: usedAt,
		Data: map[string]any{
			"type":   string(t.Type),
			"userId": t.UserID.String(),
		},
		Snapshot: t.snapshot(),
	})

	return nil
}

func (t *Token) snapshot() map[string]any {
	s := map[string]any{
		"id":          t.ID.String(),
		"userId":      t.UserID.String(),
		"rootTokenId": t.RootTokenID.String(),
		"createdAt":   t.CreatedAt.Format(time.RFC3339),
		"expiresAt":   t.ExpiresAt.Format(time.RFC3339),
		"type":        string(t.Type),
	}
	if t.UsedAt != nil {
		s["usedAt"] = t.UsedAt.Format(time.RFC3339)
	}
	return s
}
