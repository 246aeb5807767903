package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionSlot stores serialized sessions in Redis so they survive restarts
// and are shared between instances. Keys expire after ttl of inactivity.
type SessionSlot struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionSlot(client *redis.Client, ttl time.Duration) *SessionSlot {
	return &SessionSlot{client: client, ttl: ttl}
}

func (s *SessionSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.ttl > 0 {
		// sliding expiry; a failed refresh only shortens the session
		_ = s.client.Expire(ctx, s.key(key), s.ttl).Err()
	}
	return raw, true, nil
}

func (s *SessionSlot) Put(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *SessionSlot) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *SessionSlot) key(key string) string {
	return "session:" + key
}
