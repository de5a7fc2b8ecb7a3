package store

import (
	"context"
	"errors"
	"strings"
)

// Namespace prefixes every key of a Cache.
type Namespace[S any] struct {
	core      Cache[S]
	namespace string
}

func NewNamespace[S any](core Cache[S], namespace string) Namespace[S] {
	return Namespace[S]{
		core:      core,
		namespace: namespace,
	}
}

func (c Namespace[S]) key(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("store: empty key")
	}
	return c.namespace + ":" + id, nil
}

func (c Namespace[S]) Set(ctx context.Context, id string, val S) error {
	key, err := c.key(id)
	if err != nil {
		return err
	}
	return c.core.Set(ctx, key, val)
}

func (c Namespace[S]) Get(ctx context.Context, id string) (S, bool, error) {
	key, err := c.key(id)
	if err != nil {
		var zero S
		return zero, false, err
	}
	return c.core.Get(ctx, key)
}

func (c Namespace[S]) Del(ctx context.Context, id string) error {
	key, err := c.key(id)
	if err != nil {
		return err
	}
	return c.core.Del(ctx, key)
}

func (c Namespace[S]) Exists(ctx context.Context, id string) (bool, error) {
	key, err := c.key(id)
	if err != nil {
		return false, err
	}
	return c.core.Exists(ctx, key)
}
