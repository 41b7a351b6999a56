package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/gradebook/core"
	inmemkv "github.com/trezcool/gradebook/storage/kv/inmem"
)

var tokenSecret = []byte("test-secret")

// NewToken returns a signed JWT carrying role and expiring at exp (no exp claim when exp is zero).
func NewToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1"}
	if role != "" {
		claims["role"] = role
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	return NewTokenWithClaims(t, claims)
}

// NewTokenWithClaims returns a signed JWT carrying claims as is.
func NewTokenWithClaims(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(tokenSecret)
	if err != nil {
		t.Fatalf("NewTokenWithClaims() failed: %v", err)
	}
	return token
}

// Navigator records navigations.
type Navigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *Navigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// Storage is an in-memory storage counting writes; setting Err makes every call fail.
// FailSet makes the Set of the listed keys fail with the mapped error.
type Storage struct {
	*inmemkv.Store

	mu      sync.Mutex
	sets    int
	deletes int
	Err     error
	FailSet map[string]error
}

var _ core.Storage = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{Store: inmemkv.New(0)}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	if err := s.failure(); err != nil {
		return "", err
	}
	return s.Store.Get(ctx, key)
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.failure(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.FailSet[key]; err != nil {
		s.mu.Unlock()
		return err
	}
	s.sets++
	s.mu.Unlock()
	return s.Store.Set(ctx, key, value)
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if err := s.failure(); err != nil {
		return err
	}
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.Store.Delete(ctx, keys...)
}

func (s *Storage) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

// Writes returns the number of Set and Delete calls.
func (s *Storage) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets + s.deletes
}

// MustGet returns the value of key, or "" when it is absent.
func (s *Storage) MustGet(t *testing.T, key string) string {
	t.Helper()
	val, err := core.GetOrEmpty(context.Background(), s.Store, key)
	if err != nil {
		t.Fatalf("MustGet(%q) failed: %v", key, err)
	}
	return val
}

// Logger is a core.Logger keeping the messages it receives.
type Logger struct {
	mu   sync.Mutex
	msgs []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *Logger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log(msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log(msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log(msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log(msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log(msg) }

// Diff returns a unified diff of want and got, "" when they are equal.
func Diff(want, got string) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	return diff
}
