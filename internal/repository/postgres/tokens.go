package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saaskit/authcore/internal/apperrors"
	"github.com/saaskit/authcore/internal/domain"
	"github.com/saaskit/authcore/internal/repository"
)

type TokenRepo struct {
	DB     DBTX
	Events repository.EventPublisher
}

const saveToken = `-- name: SaveToken
INSERT INTO tokens (id, token_hash, user_id, root_token_id, created_at, expires_at, type, used_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
SET used_at = COALESCE(tokens.used_at, EXCLUDED.used_at)
RETURNING seq
`

// Save persists the token then publishes its pending events in order.
// The COALESCE guard keeps used_at write-once at the store level even
// if two service calls race on the same row.
func (r *TokenRepo) Save(ctx context.Context, token *domain.Token) error {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.ID.String(),
		token.TokenHash,
		token.UserID.String(),
		token.RootTokenID.String(),
		token.CreatedAt,
		token.ExpiresAt,
		string(token.Type),
		token.UsedAt,
	)
	seq, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	token.Seq = seq

	return r.Events.Publish(ctx, token.PullEvents()...)
}

const getTokenByID = `-- name: GetTokenByID
SELECT seq, id, token_hash, user_id, root_token_id, created_at, expires_at, type, used_at
FROM tokens
WHERE id = $1
`

func (r *TokenRepo) GetByID(ctx context.Context, id domain.Id) (*domain.Token, error) {
	rows, _ := r.DB.Query(ctx, getTokenByID, id.String())
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}
}

const getTokenByHash = `-- name: GetTokenByHash
SELECT seq, id, token_hash, user_id, root_token_id, created_at, expires_at, type, used_at
FROM tokens
WHERE token_hash = $1
`

func (r *TokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Token, error) {
	rows, _ := r.DB.Query(ctx, getTokenByHash, tokenHash)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}
}

const deleteTokensByRoot = `-- name: DeleteTokensByRoot
DELETE FROM tokens
WHERE root_token_id = $1
`

// DeleteByRootTokenID revokes a whole rotation chain at once
func (r *TokenRepo) DeleteByRootTokenID(ctx context.Context, rootTokenID domain.Id) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteTokensByRoot, rootTokenID.String())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToToken(row pgx.CollectableRow) (*domain.Token, error) {
	var (
		seq                 int64
		id, userID, rootID  uuid.UUID
		tokenHash, tokenTyp string
		createdAt           time.Time
		expiresAt           time.Time
		usedAt              *time.Time
	)

	err := row.Scan(&seq, &id, &tokenHash, &userID, &rootID, &createdAt, &expiresAt, &tokenTyp, &usedAt)
	if err != nil {
		return nil, err
	}

	return &domain.Token{
		Seq:         seq,
		ID:          mustId(id),
		TokenHash:   tokenHash,
		UserID:      mustId(userID),
		RootTokenID: mustId(rootID),
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
		Type:        domain.TokenType(tokenTyp),
		UsedAt:      usedAt,
	}, nil
}

// mustId converts a db uuid to domain.Id.
// The column type already guarantees validity
func mustId(u uuid.UUID) domain.Id {
	id, err := domain.ParseId(u.String())
	if err != nil {
		panic(err)
	}
	return id
}
