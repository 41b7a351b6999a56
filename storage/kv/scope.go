package kv

import (
	"context"

	"github.com/trezcool/gradebook/core"
)

type scoped struct {
	storage core.Storage
	prefix  string
}

// Scope returns a view of s where every key lives under prefix.
func Scope(s core.Storage, prefix string) core.Storage {
	return &scoped{storage: s, prefix: prefix}
}

// ClientScope namespaces s to one browser client.
func ClientScope(s core.Storage, clientID string) core.Storage {
	return Scope(s, "client:"+clientID+":")
}

func (s *scoped) Get(ctx context.Context, key string) (string, error) {
	return s.storage.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.storage.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefix + key
	}
	return s.storage.Delete(ctx, prefixed...)
}
