package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "tekton:oauth_state:"

// RedisStore shares states between instances behind a load balancer.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Issue stores the session id as the value under the state key.
func (r *RedisStore) Issue(ctx context.Context, sessionID string) (string, error) {
	s, err := newState()
	if err != nil {
		return "", err
	}
	ok, err := r.client.SetNX(ctx, r.prefix+s, sessionID, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	if !ok {
		return "", errors.New("oauth state collision")
	}
	return s, nil
}

func (r *RedisStore) Consume(ctx context.Context, state, sessionID string) error {
	if state == "" {
		return ErrUnknownState
	}
	issued, err := r.client.GetDel(ctx, r.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return ErrUnknownState
	}
	if err != nil {
		return fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return checkSession(issued, sessionID)
}
