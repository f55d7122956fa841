package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/winekit/core"
)

// exerciseStore 对任意后端跑同一组行为检查
func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "run:missing")
	assert.True(t, core.IsStoreNotFound(err))
	assert.ErrorIs(t, err, core.ErrStoreNotFound)

	require.NoError(t, s.Set(ctx, "run:b", []byte("2")))
	require.NoError(t, s.Set(ctx, "run:a", []byte("1")))
	require.NoError(t, s.Set(ctx, "run*:x", []byte("3")))
	require.NoError(t, s.Set(ctx, "other", []byte("4")))

	v, err := s.Get(ctx, "run:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	keys, err := s.Keys(ctx, "run:")
	require.NoError(t, err)
	assert.Equal(t, []string{"run:a", "run:b"}, keys)

	keys, err = s.Keys(ctx, "run*")
	require.NoError(t, err)
	assert.Equal(t, []string{"run*:x"}, keys)

	require.NoError(t, s.Set(ctx, "run:a", []byte("1b")))
	v, err = s.Get(ctx, "run:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1b"), v)

	require.NoError(t, s.Delete(ctx, "run:a"))
	_, err = s.Get(ctx, "run:a")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	assert.Equal(t, "memory", s.Name())
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), 0)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "redis", s.Name())
	exerciseStore(t, s)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(addr, 0)
	assert.True(t, core.IsUnavailable(err))
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "badger", s.Name())
	exerciseStore(t, s)
}

func TestBadgerStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultBadgerConfig()
	cfg.Path = dir

	s, err := NewBadgerStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(cfg)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	_, err = NewBadgerStore(DefaultBadgerConfig())
	assert.True(t, core.IsInvalidInput(err))
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(Config{Type: "memory"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	s, err = Open(Config{Type: "badger"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "badger", s.Name())
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(Config{Type: "redis", RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	assert.Equal(t, "redis", s.Name())
	require.NoError(t, s.Close())

	_, err = Open(Config{Type: "etcd"}, nil)
	assert.True(t, core.IsNotSupported(err))
}
