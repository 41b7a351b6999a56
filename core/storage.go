package core

import (
	"context"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Storage is a string key/value storage.
// Durable storage keeps values until they are deleted; transient storage may expire them.
type Storage interface {
	// Get returns ErrKeyNotFound when key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// GetOrEmpty returns the value stored under key, or "" when it does not exist.
func GetOrEmpty(ctx context.Context, s Storage, key string) (string, error) {
	val, err := s.Get(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrKeyNotFound {
			return "", nil
		}
		return "", err
	}
	return val, nil
}
