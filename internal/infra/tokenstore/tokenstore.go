// Package tokenstore persists the LedgerOS session token between runs.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key is the fixed name the token is stored under.
const Key = "ledgeros_token"

// ============================================================
// File store
// ============================================================

// File keeps the token in a single file readable only by the owner.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store writing to path. The directory is created on
// first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load returns the stored token, or "" when there is none.
func (f *File) Load(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored token atomically.
func (f *File) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// Delete removes the stored token. Deleting nothing is not an error.
func (f *File) Delete(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}

// ============================================================
// Redis store
// ============================================================

// Redis keeps the token under Key, for deployments where the gateway has
// no writable disk. The session survives a restart, but console tokens are
// bound to the process that issued them, so one gateway serves the console
// at a time.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// Fallback to a bare host:port
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client, key: Key}, nil
}

// Load returns the stored token, or "" when there is none.
func (r *Redis) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// Save stores the token without expiry; the server decides when it dies.
func (r *Redis) Save(ctx context.Context, token string) error {
	return r.client.Set(ctx, r.key, token, 0).Err()
}

// Delete removes the stored token.
func (r *Redis) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Ping reports whether Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
