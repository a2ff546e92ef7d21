// Package storage persists opaque storefront state blobs by key.
//
// A Storage is the server-side stand-in for browser local storage: callers
// serialize their own values, and a missing key is reported as ErrNotFound
// rather than as an empty value.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the key has never been saved or was deleted
var ErrNotFound = errors.New("storage: key not found")

// Storage is a minimal key-value store
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type prefixed struct {
	base   Storage
	prefix string
}

// WithPrefix namespaces every key of base with prefix
func WithPrefix(base Storage, prefix string) Storage {
	return &prefixed{base: base, prefix: prefix}
}

func (p *prefixed) Load(ctx context.Context, key string) ([]byte, error) {
	return p.base.Load(ctx, p.prefix+key)
}

func (p *prefixed) Save(ctx context.Context, key string, value []byte) error {
	return p.base.Save(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.base.Delete(ctx, p.prefix+key)
}

// SessionPrefix is the key namespace of one shopper session
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
