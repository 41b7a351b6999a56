package inmemkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New(0)

	_, err := s.Get(ctx, "token")
	assert.Equal(t, core.ErrKeyNotFound, err)

	require.NoError(t, s.Set(ctx, "token", "abc"))
	require.NoError(t, s.Set(ctx, "role", "TEACHER"))
	val, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	require.NoError(t, s.Set(ctx, "token", "def"))
	val, _ = s.Get(ctx, "token")
	assert.Equal(t, "def", val)

	require.NoError(t, s.Delete(ctx, "token", "missing"))
	_, err = s.Get(ctx, "token")
	assert.Equal(t, core.ErrKeyNotFound, err)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ttl(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	s := New(time.Minute)
	require.NoError(t, s.Set(ctx, "googleUserData", "{}"))

	now = now.Add(59 * time.Second)
	_, err := s.Get(ctx, "googleUserData")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, "googleUserData")
	assert.Equal(t, core.ErrKeyNotFound, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	s := New(time.Minute)
	require.NoError(t, s.Set(ctx, "pending:google", "{}"))
	now = now.Add(30 * time.Second)
	require.NoError(t, s.Set(ctx, "pending:azure", "{}"))

	now = now.Add(30 * time.Second)
	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, s.Len())

	_, err = s.Get(ctx, "pending:azure")
	assert.NoError(t, err)
}
