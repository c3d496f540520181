package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saaskit/authcore/internal/apperrors"
)

const tokenHashKeyPrefix = "TokenHash:v1:"

// tokenHashTTL bounds how long the one-time secret may wait for its
// read-model query; entries are useless after the login response window
const tokenHashTTL = 10 * time.Minute

// TokenHashRepo is the write-once/read-once correlation store mapping a
// token's hash to the plaintext secret returned once to the caller.
type TokenHashRepo struct {
	client *redis.Client
}

func NewTokenHashRepo(client *redis.Client) *TokenHashRepo {
	return &TokenHashRepo{client: client}
}

func (r *TokenHashRepo) Save(ctx context.Context, tokenHash string, value string) error {
	ok, err := r.client.SetNX(ctx, tokenHashKeyPrefix+tokenHash, value, tokenHashTTL).Result()
	if err != nil {
		return fmt.Errorf("cache error: %w", err)
	}
	if !ok {
		return fmt.Errorf("token hash entry %q written already", tokenHash)
	}
	return nil
}

// ConsumeByTokenHash returns the stored value and deletes it atomically.
// A second call with the same hash is a hard miss.
func (r *TokenHashRepo) ConsumeByTokenHash(ctx context.Context, tokenHash string) (string, error) {
	value, err := r.client.GetDel(ctx, tokenHashKeyPrefix+tokenHash).Result()

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, redis.Nil):
		return "", fmt.Errorf("repo error: %w", apperrors.ErrTokenHashNotFound)
	default:
		return "", fmt.Errorf("cache error: %w", err)
	}
}
