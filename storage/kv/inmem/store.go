package inmemkv

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/gradebook/core"
)

var nowFunc = time.Now // mockable

type (
	Store struct {
		sync.RWMutex
		table map[string]entry
		ttl   time.Duration
	}

	entry struct {
		value     string
		expiresAt time.Time // zero: never
	}
)

var _ core.Storage = (*Store)(nil)

// New returns an in-memory storage. Values expire after ttl; ttl <= 0 keeps them forever.
func New(ttl time.Duration) *Store {
	return &Store{
		table: make(map[string]entry),
		ttl:   ttl,
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.RLock()
	e, ok := s.table[key]
	s.RUnlock()

	if !ok {
		return "", core.ErrKeyNotFound
	}
	if e.expired() {
		s.Lock()
		if cur, ok := s.table[key]; ok && cur.expired() {
			delete(s.table, key)
		}
		s.Unlock()
		return "", core.ErrKeyNotFound
	}
	return e.value, nil
}

func (e entry) expired() bool {
	return !e.expiresAt.IsZero() && !nowFunc().Before(e.expiresAt)
}

func (s *Store) Set(_ context.Context, key, value string) error {
	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = nowFunc().Add(s.ttl)
	}
	s.Lock()
	s.table[key] = e
	s.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.Lock()
	defer s.Unlock()
	for _, key := range keys {
		delete(s.table, key)
	}
	return nil
}

// Purge removes expired values.
func (s *Store) Purge(context.Context) (int64, error) {
	s.Lock()
	defer s.Unlock()
	var n int64
	for key, e := range s.table {
		if e.expired() {
			delete(s.table, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored keys, expired ones included.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.table)
}
