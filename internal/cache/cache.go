// Package cache keeps computed reports in Redis. Any write to the data the
// reports aggregate bumps a generation counter, which orphans older entries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"association-admin-api/internal/model"
)

type Reports interface {
	Get(ctx context.Context, key string) (*model.Report, bool, error)
	Set(ctx context.Context, key string, r *model.Report) error
	Invalidate(ctx context.Context) error
}

const genKey = "reports:gen"

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects using a redis:// URL and pings the server.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (c *Redis) Close() error { return c.rdb.Close() }

func (c *Redis) key(ctx context.Context, k string) (string, error) {
	gen, err := c.rdb.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("reports:%d:%s", gen, k), nil
}

func (c *Redis) Get(ctx context.Context, k string) (*model.Report, bool, error) {
	key, err := c.key(ctx, k)
	if err != nil {
		return nil, false, err
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r model.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *Redis) Set(ctx context.Context, k string, r *model.Report) error {
	key, err := c.key(ctx, k)
	if err != nil {
		return err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, genKey).Err()
}

// Nop never hits. Used when REDIS_URL is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*model.Report, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, *model.Report) error        { return nil }
func (Nop) Invalidate(context.Context) error                        { return nil }
