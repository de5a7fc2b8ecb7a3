// Package redis implements store.Cache on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tbxark/tallyentry/store"
)

const (
	defaultTTL    = 30 * 24 * time.Hour
	defaultPrefix = "tally"
)

type Cache[S any] struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

type Option func(*settings)

type settings struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	db       int
	password string
}

func WithPassword(password string) Option {
	return func(s *settings) {
		s.password = password
	}
}

func WithDB(db int) Option {
	return func(s *settings) {
		s.db = db
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *settings) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.client = client
		}
	}
}

func New[S any](addr string, opts ...Option) (*Cache[S], error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	st := settings{ttl: defaultTTL, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(&st)
	}
	c := &Cache[S]{
		client:   st.client,
		ttl:      st.ttl,
		prefix:   st.prefix,
		addr:     addr,
		db:       st.db,
		password: st.password,
	}
	if c.client == nil {
		c.client = goredis.NewClient(&goredis.Options{
			Addr:     c.addr,
			Password: c.password,
			DB:       c.db,
		})
	}
	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return c, nil
}

func (c *Cache[S]) key(key string) string {
	return c.prefix + ":" + key
}

func (c *Cache[S]) Set(ctx context.Context, key string, val S) error {
	raw, err := sonic.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %q in redis: %w", key, err)
	}
	return nil
}

func (c *Cache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %q from redis: %w", key, err)
	}
	var val S
	if err := sonic.Unmarshal(raw, &val); err != nil {
		return zero, false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return val, true, nil
}

func (c *Cache[S]) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %q from redis: %w", key, err)
	}
	return nil
}

func (c *Cache[S]) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %q in redis: %w", key, err)
	}
	return n > 0, nil
}

func (c *Cache[S]) Close() error {
	return c.client.Close()
}

var _ store.Cache[store.Entry] = (*Cache[store.Entry])(nil)
