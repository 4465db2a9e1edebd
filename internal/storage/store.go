// Package storage is the durable key-value slot behind the story history.
package storage

import (
	"context"
)

// Store - last-writer-wins key/value. ok=false значит ключа нет, это не ошибка.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type prefixed struct {
	store  Store
	prefix string
}

// WithPrefix scopes every key of store under prefix.
func WithPrefix(store Store, prefix string) Store {
	if prefix == "" {
		return store
	}
	return &prefixed{store: store, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}
