package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/graphkit/graph-cli/internal/config"
)

const defaultKeyringPrefix = "login:"

// KeyringStore keeps login state next to the profiles in the OS keyring.
type KeyringStore struct {
	ring   keyring.Keyring
	prefix string
}

// NewKeyringStore opens the graph-cli keyring. Keys are namespaced by prefix,
// "login:" when empty.
func NewKeyringStore(prefix string) (*KeyringStore, error) {
	ring, err := config.OpenKeyring()
	if err != nil {
		return nil, err
	}
	return NewKeyringStoreWith(ring, prefix), nil
}

// NewKeyringStoreWith wraps an already opened keyring.
func NewKeyringStoreWith(ring keyring.Keyring, prefix string) *KeyringStore {
	if prefix == "" {
		prefix = defaultKeyringPrefix
	}
	return &KeyringStore{ring: ring, prefix: prefix}
}

func (s *KeyringStore) Get(_ context.Context, key string) (string, bool, error) {
	item, err := s.ring.Get(s.prefix + key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from keyring: %w", key, err)
	}
	return string(item.Data), true, nil
}

func (s *KeyringStore) Set(_ context.Context, key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   s.prefix + key,
		Data:  []byte(value),
		Label: "graph-cli login state",
	})
	if err != nil {
		return fmt.Errorf("failed to write %s to keyring: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Delete(_ context.Context, key string) error {
	if err := s.ring.Remove(s.prefix + key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Close() error { return nil }
