package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository handles refresh token persistence in Redis. Expiration is
// delegated to key TTLs, so no cleanup job is needed.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// getTokenKey generates the Redis key for a refresh token
func getTokenKey(tokenHash string) string {
	return fmt.Sprintf("refresh_token:%s", tokenHash)
}

// getUserTokensKey generates the Redis key for user's token set
func getUserTokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_tokens:%s", userID.String())
}

// Store stores a refresh token in Redis with TTL
func (r *RedisRepository) Store(ctx context.Context, userID uuid.UUID, token string) error {
	tokenHash := hashToken(token)
	tokenKey := getTokenKey(tokenHash)
	userTokensKey := getUserTokensKey(userID)

	pipe := r.client.Pipeline()

	pipe.HSet(ctx, tokenKey, map[string]interface{}{
		"user_id":    userID.String(),
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, tokenKey, r.ttl)

	// Track the token hash on the user's set so DeleteAllForUser can find it
	pipe.SAdd(ctx, userTokensKey, tokenHash)
	pipe.Expire(ctx, userTokensKey, r.ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// Exists reports whether the token is still on record.
func (r *RedisRepository) Exists(ctx context.Context, token string) (bool, error) {
	tokenKey := getTokenKey(hashToken(token))

	count, err := r.client.Exists(ctx, tokenKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token existence: %w", err)
	}

	return count > 0, nil
}

// Delete removes the token record. DEL's removed-key count is the rotation
// guard: a concurrent rotation that lost the race sees zero keys removed and
// gets ErrRefreshTokenNotFound.
func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	tokenHash := hashToken(token)
	tokenKey := getTokenKey(tokenHash)

	var userID string
	if id, err := r.client.HGet(ctx, tokenKey, "user_id").Result(); err == nil {
		userID = id
	}

	removed, err := r.client.Del(ctx, tokenKey).Result()
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if removed == 0 {
		return ErrRefreshTokenNotFound
	}

	if userID != "" {
		if uid, err := uuid.Parse(userID); err == nil {
			if err := r.client.SRem(ctx, getUserTokensKey(uid), tokenHash).Err(); err != nil {
				return fmt.Errorf("failed to remove token from user set: %w", err)
			}
		}
	}

	return nil
}

// DeleteAllForUser removes every refresh token the user holds.
func (r *RedisRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	userTokensKey := getUserTokensKey(userID)

	tokenHashes, err := r.client.SMembers(ctx, userTokensKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}

	if len(tokenHashes) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, tokenHash := range tokenHashes {
		pipe.Del(ctx, getTokenKey(tokenHash))
	}
	pipe.Del(ctx, userTokensKey)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete all user tokens: %w", err)
	}

	return nil
}
