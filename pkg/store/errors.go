package store

import "errors"

var (
	// ErrKeyNotFound indicates the requested key has no stored value.
	ErrKeyNotFound = errors.New("store: key not found")

	// ErrInvalidKey indicates an empty or otherwise unusable key.
	ErrInvalidKey = errors.New("store: invalid key")
)
