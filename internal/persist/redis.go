package persist

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisRecorder stores battles in Redis: blobs as plain keys, indexes and
// frame sequences as sorted sets.
type RedisRecorder struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig carries the connection settings for NewRedisRecorder.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRecorder creates a recorder over a new Redis client. Call Ping to
// verify the server is reachable before relying on it.
func NewRedisRecorder(cfg RedisConfig, logger zerolog.Logger) *RedisRecorder {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisRecorder{
		client: client,
		logger: logger.With().Str("component", "redis_recorder").Logger(),
	}
}

// Ping checks connectivity to the Redis server.
func (r *RedisRecorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRecorder) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisRecorder) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (r *RedisRecorder) SortedAdd(ctx context.Context, key, member string, score float64) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisRecorder) SortedRange(ctx context.Context, key string, start, stop int64, reverse bool) ([]string, error) {
	if reverse {
		return r.client.ZRevRange(ctx, key, start, stop).Result()
	}
	return r.client.ZRange(ctx, key, start, stop).Result()
}

func (r *RedisRecorder) SortedCount(ctx context.Context, key string) (int64, error) {
	return r.client.ZCard(ctx, key).Result()
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
