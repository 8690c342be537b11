// Package store provides persistent backends for the login CSRF state.
//
// A store is picked from a URL-like location:
//
//	memory               process memory (default)
//	redis://host:6379/0  Redis, entries expire after the TTL
//	file:///path/state   JSON file guarded by a lock file
//	keyring[:prefix]     the OS keyring used for profiles
package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/graphkit/graph-cli/internal/graph"
)

// DefaultTTL bounds how long a login state stays valid in stores that expire
// entries.
const DefaultTTL = 10 * time.Minute

// Store is a graph.PersistentStore that holds external resources.
type Store interface {
	graph.PersistentStore
	Close() error
}

type memoryStore struct {
	*graph.MemoryStore
}

func (memoryStore) Close() error { return nil }

// NewMemory returns a Store backed by process memory.
func NewMemory() Store {
	return memoryStore{graph.NewMemoryStore()}
}

// Open returns the store described by loc. An empty loc means memory.
func Open(ctx context.Context, loc string) (Store, error) {
	loc = strings.TrimSpace(loc)
	switch {
	case loc == "" || loc == "memory":
		return NewMemory(), nil
	case loc == "keyring":
		return NewKeyringStore("")
	case strings.HasPrefix(loc, "keyring:"):
		return NewKeyringStore(strings.TrimPrefix(loc, "keyring:"))
	case loc == "file":
		path, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		return NewFileStore(path, DefaultTTL), nil
	}

	u, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid state store %q: %w", loc, err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		return NewRedisStore(ctx, RedisOptions{URL: loc})
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, fmt.Errorf("invalid state store %q: missing file path", loc)
		}
		return NewFileStore(path, DefaultTTL), nil
	default:
		return nil, fmt.Errorf("unsupported state store %q (use memory, redis://, file:// or keyring)", loc)
	}
}

// DefaultDir returns the platform cache directory for graph-cli.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "graph-cli"), nil
}

// DefaultFilePath is where the bare "file" loc keeps its state.
func DefaultFilePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "login-state.json"), nil
}
