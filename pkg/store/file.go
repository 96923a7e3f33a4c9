package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists all keys into a single JSON document on disk.
// Writes go through a temporary file followed by an atomic rename so a crash
// mid-write never corrupts previously stored records. This is the closest
// analogue to browser local storage for CLI and desktop hosts.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the JSON document at path.
// The parent directory must exist. A missing file behaves as an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: file path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("store: parent directory unavailable: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return nil, err
	}

	raw, ok := values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return raw, nil
}

func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = json.RawMessage(value)
	return f.save(values)
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *FileStore) load() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}

	values := make(map[string]json.RawMessage)
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileStore) save(values map[string]json.RawMessage) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", f.path, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmp, err)
	}
	return nil
}
