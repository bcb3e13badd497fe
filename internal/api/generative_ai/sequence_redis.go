package generativeAI

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ SequenceCounter = (*RedisSequence)(nil)

// RedisSequence backs the rotation counter with INCR so every replica shares it.
type RedisSequence struct {
	client redis.Cmdable
	key    string
}

func NewRedisSequence(client redis.Cmdable, key string) *RedisSequence {
	return &RedisSequence{client: client, key: key}
}

func (s *RedisSequence) Next(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", s.key, err)
	}
	return n - 1, nil
}
