// Package sqlite implements store.Cache on a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/tbxark/tallyentry/store"
)

//go:embed schema.sql
var schemaSQL string

const defaultBusyTimeout = 5 * time.Second

type Cache[S any] struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
}

type Option func(*options)

type options struct {
	busyTimeout time.Duration
	enableWAL   bool
}

func WithBusyTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout >= 0 {
			o.busyTimeout = timeout
		}
	}
}

func WithWAL(enabled bool) Option {
	return func(o *options) {
		o.enableWAL = enabled
	}
}

func New[S any](path string, opts ...Option) (*Cache[S], error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	o := options{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Cache[S]{db: db, busyTimeout: o.busyTimeout, enableWAL: o.enableWAL}
	if err := c.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache[S]) initialize(ctx context.Context) error {
	if c.busyTimeout > 0 {
		ms := int(c.busyTimeout / time.Millisecond)
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", ms)); err != nil {
			return fmt.Errorf("failed to set busy_timeout: %w", err)
		}
	}
	if c.enableWAL {
		if _, err := c.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable wal: %w", err)
		}
	}
	if _, err := c.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (c *Cache[S]) Set(ctx context.Context, key string, val S) error {
	raw, err := sonic.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	const q = `
INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value=excluded.value,
  updated_at=excluded.updated_at;
`
	if _, err := c.db.ExecContext(ctx, q, key, string(raw), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

func (c *Cache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?;`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %q: %w", key, err)
	}
	var val S
	if err := sonic.UnmarshalString(raw, &val); err != nil {
		return zero, false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return val, true, nil
}

func (c *Cache[S]) Del(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (c *Cache[S]) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cache_entries WHERE key = ?;`, key).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check %q: %w", key, err)
	}
	return n > 0, nil
}

func (c *Cache[S]) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

var _ store.Cache[store.Entry] = (*Cache[store.Entry])(nil)
