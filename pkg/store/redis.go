package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists keys in Redis under a shared namespace prefix, for
// server-side hosts that embed the SDK across a process fleet and need the
// device identity to survive individual process restarts.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStore creates a store on top of an existing Redis client.
// The namespace is prepended to every key; it defaults to "notificare".
func NewRedisStore(client redis.UniversalClient, namespace string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("store: redis client is required")
	}
	if namespace == "" {
		namespace = "notificare"
	}
	return &RedisStore{client: client, namespace: namespace}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	raw, err := r.client.Get(ctx, r.namespaced(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("store: redis get %q: %w", key, err)
	}
	return raw, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}

	// Records never expire: the SDK owns their lifecycle explicitly.
	if err := r.client.Set(ctx, r.namespaced(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if err := r.client.Del(ctx, r.namespaced(key)).Err(); err != nil {
		return fmt.Errorf("store: redis del %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := r.namespaced(prefix) + "*"

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.namespace+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("store: redis scan %q: %w", pattern, err)
	}
	return keys, nil
}

func (r *RedisStore) namespaced(key string) string {
	return r.namespace + ":" + key
}
