package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	boltStore, err := OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"bolt":   boltStore,
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, ok, err := s.Get(ctx, []byte("missing"))
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Put(ctx, []byte("a"), []byte("1")))
			v, ok, err := s.Get(ctx, []byte("a"))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, []byte("1"), v)
		})
	}
}

func TestStore_WriteBatchAtomic(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.WriteBatch(ctx, []KV{
				{Key: []byte("x"), Value: []byte("1")},
				{Key: []byte("y"), Value: []byte("2")},
			}))
			v, ok, _ := s.Get(ctx, []byte("x"))
			require.True(t, ok)
			require.Equal(t, []byte("1"), v)
			v, ok, _ = s.Get(ctx, []byte("y"))
			require.True(t, ok)
			require.Equal(t, []byte("2"), v)
		})
	}
}

func TestStore_SeekOrderedByKey(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.WriteBatch(ctx, []KV{
				{Key: []byte("p:3"), Value: []byte("c")},
				{Key: []byte("p:1"), Value: []byte("a")},
				{Key: []byte("p:2"), Value: []byte("b")},
				{Key: []byte("q:1"), Value: []byte("z")},
			}))

			it, err := s.Seek(ctx, []byte("p:"))
			require.NoError(t, err)
			defer it.Close()

			var got []string
			for it.Next() {
				got = append(got, string(it.Value()))
			}
			require.NoError(t, it.Err())
			require.Equal(t, []string{"a", "b", "c"}, got)
		})
	}
}

func TestStore_SeekEmptyPrefix(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			it, err := s.Seek(ctx, []byte("nope:"))
			require.NoError(t, err)
			defer it.Close()
			require.False(t, it.Next())
			require.NoError(t, it.Err())
		})
	}
}
