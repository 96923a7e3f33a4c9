package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store is the durable key-value surface the SDK persists its records to.
// Implementations must be safe for concurrent use; the SDK serializes
// read-modify-write cycles on individual records at a higher level.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys with the given prefix.
	// An empty prefix returns every key.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GetJSON reads the value under key and unmarshals it into T.
// Returns ErrKeyNotFound when the key is absent.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("store: decode %q: %w", key, err)
	}
	return &v, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// IsNotFound reports whether err indicates an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
