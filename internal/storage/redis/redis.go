package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * NewWithClient wraps an existing client. Used by tests against miniredis.
func NewWithClient(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

// * IncrementAndCheck counts one hit against key inside a fixed window and
// reports whether the count is still within limit.
func (r *RedisRepo) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	const op = "storage.redis.IncrementAndCheck"

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	// A counter without a TTL never resets, so the window starts now.
	if ttl.Val() < 0 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return incr.Val() <= int64(limit), nil
}

// * Close closes the Redis connection.
func (r *RedisRepo) Close() {
	r.client.Close()
}
