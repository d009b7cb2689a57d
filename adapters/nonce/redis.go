package nonce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/ports"
)

// RedisStore is a Redis implementation of the NonceStore interface. The
// challenge TTL is delegated to Redis key expiry, so expired challenges
// surface as missing keys without any sweeper.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis nonce store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "walletauth:nonce:",
	}
}

var _ ports.NonceStore = (*RedisStore)(nil)

// Issue upserts the challenge keyed by wallet address with a TTL
func (s *RedisStore) Issue(ctx context.Context, challenge *core.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired: %w", core.ErrChallengeNotFound)
	}

	key := s.prefix + challenge.WalletAddress
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", core.ErrStoreUnavailable)
	}

	return nil
}

// Consume returns the current challenge without deleting it
func (s *RedisStore) Consume(ctx context.Context, walletAddress string) (*core.Challenge, error) {
	key := s.prefix + walletAddress

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("load challenge: %w", core.ErrStoreUnavailable)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}

	return &challenge, nil
}

// Clear deletes the stored challenge. DEL is atomic, so exactly one of any
// set of concurrent callers observes removed == true.
func (s *RedisStore) Clear(ctx context.Context, walletAddress string) (bool, error) {
	key := s.prefix + walletAddress

	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("clear challenge: %w", core.ErrStoreUnavailable)
	}

	return removed > 0, nil
}
