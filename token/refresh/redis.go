package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gateway:refresh:used:"

// RedisStore shares used refresh token ids through Redis using SETNX with a TTL,
// so every gateway process sees the same replay state.
type RedisStore struct {
	client  redis.Cmdable
	nowFunc func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, nowFunc: time.Now}
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("refresh/redis: error connecting to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) MarkUsed(ctx context.Context, jti string, exp time.Time) (bool, error) {
	ttl := exp.Sub(s.nowFunc())
	if ttl <= 0 {
		// Already expired tokens fail verification before reaching the store.
		ttl = time.Second
	}
	first, err := s.client.SetNX(ctx, keyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refresh/redis: setnx: %w", err)
	}
	return first, nil
}
