package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockTimeout is the maximum time to wait for the state file lock.
const LockTimeout = 2 * time.Second

type fileEntry struct {
	Value    string    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// FileStore keeps login state in a JSON file. Every operation holds an
// exclusive lock on a sibling ".lock" file, so concurrent CLI processes see a
// consistent view.
type FileStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewFileStore returns a store writing to path. A ttl of zero disables expiry.
func NewFileStore(path string, ttl time.Duration) *FileStore {
	return &FileStore{path: path, ttl: ttl, now: time.Now}
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	fl := flock.New(s.lockPath())
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.lockPath(), err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s: timed out", s.lockPath())
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

// load reads the entries; caller must hold the lock. A missing or corrupt
// file reads as empty.
func (s *FileStore) load() map[string]fileEntry {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return make(map[string]fileEntry)
	}
	return entries
}

func (s *FileStore) save(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

func (s *FileStore) expired(e fileEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.StoredAt) > s.ttl
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.withLock(ctx, func() error {
		e, ok := s.load()[key]
		if !ok || s.expired(e) {
			return nil
		}
		value, found = e.Value, true
		return nil
	})
	return value, found, err
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.withLock(ctx, func() error {
		entries := s.load()
		for k, e := range entries {
			if s.expired(e) {
				delete(entries, k)
			}
		}
		entries[key] = fileEntry{Value: value, StoredAt: s.now().UTC()}
		return s.save(entries)
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		entries := s.load()
		if _, ok := entries[key]; !ok {
			return nil
		}
		delete(entries, key)
		return s.save(entries)
	})
}

func (s *FileStore) Close() error { return nil }
