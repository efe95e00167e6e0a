// Package store persists small values under string keys. The selected place
// is the only thing kept here; Selection layers the JSON encoding on top.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// KV is a durable key/value backend. Set overwrites.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// Backends accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Path     string
	RedisURL string
}

// Open returns the backend named by opts.Backend. An empty name means file.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileKV(opts.Path)
	case BackendSQLite:
		return NewSQLiteKV(ctx, opts.Path)
	case BackendRedis:
		return NewRedisKV(ctx, opts.RedisURL)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
