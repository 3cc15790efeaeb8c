// Package storage holds the blob backends behind the incident store. Each backend
// persists one named opaque blob; readers and writers always move the whole value.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Backend reads and writes a single named blob. Read returns nil, nil when the blob
// has never been written.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Kind        string // memory, file, redis, postgres
	Key         string
	FilePath    string
	RedisURL    string
	PostgresDSN string
	Logger      *logrus.Logger
}

// Open builds the backend named by opts.Kind
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Kind) {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(opts.FilePath, opts.Logger)
	case "redis":
		return NewRedisBackend(ctx, opts.RedisURL, opts.Key)
	case "postgres":
		return NewPostgresBackend(ctx, opts.PostgresDSN, opts.Key)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
	}
}
