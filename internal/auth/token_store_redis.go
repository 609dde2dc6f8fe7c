package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"consentd/internal/platform/redis"
)

const tokenKeyPrefix = "consentd:verify:"

// RedisTokenStore keeps pending tokens in Redis with a TTL slightly past
// the token lifetime, so storage expiry never races ahead of the
// service's own ExpiresAt check.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, token VerificationToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	ttl := time.Until(token.ExpiresAt) + time.Minute
	if err := s.client.Set(ctx, tokenKeyPrefix+token.Digest, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, digest string) (*VerificationToken, error) {
	payload, err := s.client.Get(ctx, tokenKeyPrefix+digest).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	var token VerificationToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &token, nil
}

func (s *RedisTokenStore) MarkUsed(ctx context.Context, digest string, at time.Time) (*VerificationToken, error) {
	token, err := s.Get(ctx, digest)
	if err != nil || token == nil {
		return nil, err
	}
	token.UsedAt = &at
	payload, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("marshal token: %w", err)
	}
	// Keep the used marker around for the remaining TTL so replays are
	// rejected rather than reported unknown.
	if err := s.client.Set(ctx, tokenKeyPrefix+digest, payload, goredis.KeepTTL).Err(); err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}
	return token, nil
}
