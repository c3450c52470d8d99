// Package redis stores the snapshot payload under a single Redis string key.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"booktrack/pkg/domain"
)

// DefaultKey is the Redis key used when none is configured.
const DefaultKey = "booktrack:state"

var _ domain.SnapshotBackend = (*Backend)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Backend keeps the snapshot in one Redis key.
type Backend struct {
	client *goredis.Client
	key    string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.Key), nil
}

// NewWithClient wraps an existing client. An empty key selects DefaultKey.
func NewWithClient(client *goredis.Client, key string) *Backend {
	if key == "" {
		key = DefaultKey
	}
	return &Backend{client: client, key: key}
}

// Load returns the stored payload; a missing key maps to domain.ErrNoSnapshot.
func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.key, err)
	}
	return data, nil
}

// Save overwrites the key without expiry.
func (b *Backend) Save(ctx context.Context, payload []byte) error {
	if err := b.client.Set(ctx, b.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", b.key, err)
	}
	return nil
}

// Close closes the client.
func (b *Backend) Close() error { return b.client.Close() }
