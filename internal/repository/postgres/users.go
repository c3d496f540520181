package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
)

type UserRepo struct {
	DB     DBTX
	Events repository.EventPublisher
}

const saveUser = `-- name: SaveUser
INSERT INTO users (id, email, unverified_email, password_hash, role, created_at, email_verified_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
SET email             = EXCLUDED.email,
    unverified_email  = EXCLUDED.unverified_email,
    role              = EXCLUDED.role,
    email_verified_at = EXCLUDED.email_verified_at
RETURNING id
`

func (r *UserRepo) Save(ctx context.Context, user *domain.User) error {
	var unverified *string
	if user.UnverifiedEmail != nil {
		s := user.UnverifiedEmail.String()
		unverified = &s
	}

	rows, _ := r.DB.Query(ctx, saveUser,
		user.ID.String(),
		user.Email.String(),
		unverified,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
		user.EmailVerifiedAt,
	)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return fmt.Errorf("repo error: %w", apperrors.ErrEmailTaken)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return r.Events.Publish(ctx, user.PullEvents()...)
}

const getUserByID = `-- name: GetUserByID
SELECT id, email, unverified_email, password_hash, role, created_at, email_verified_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetByID(ctx context.Context, id domain.Id) (*domain.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id.String())
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, email, unverified_email, password_hash, role, created_at, email_verified_at
FROM users
WHERE email = $1 OR unverified_email = $1
`

func (r *UserRepo) GetByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email.String())
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (*domain.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (*domain.User, error) {
	var (
		id              uuid.UUID
		email           string
		unverifiedEmail *string
		passwordHash    string
		role            string
		createdAt       time.Time
		emailVerifiedAt *time.Time
	)

	err := row.Scan(&id, &email, &unverifiedEmail, &passwordHash, &role, &createdAt, &emailVerifiedAt)
	if err != nil {
		return nil, err
	}

	parsedEmail, err := domain.ParseEmail(email)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:              mustId(id),
		Email:           parsedEmail,
		PasswordHash:    passwordHash,
		Role:            domain.Role(role),
		CreatedAt:       createdAt,
		EmailVerifiedAt: emailVerifiedAt,
	}

	if unverifiedEmail != nil {
		parsed, err := domain.ParseEmail(*unverifiedEmail)
		if err != nil {
			return nil, err
		}
		user.UnverifiedEmail = &parsed
	}

	return user, nil
}
