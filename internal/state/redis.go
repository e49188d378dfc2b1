package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Redis is a store shared through a Redis server, so several review
// terminals resume from the same cursor.
type Redis struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisPool dials addr on demand.
func NewRedisPool(addr string, maxIdle int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial("tcp", addr, redis.DialConnectTimeout(5*time.Second))
			if err != nil {
				return nil, err
			}
			return c, err
		},
	}
}

// NewRedis returns a store whose keys are namespaced by prefix.
func NewRedis(pool *redis.Pool, prefix string) *Redis {
	return &Redis{pool: pool, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	v, err := redis.String(conn.Do("GET", r.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, key, value string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("SET", r.prefix+key, value); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Close releases the pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}
