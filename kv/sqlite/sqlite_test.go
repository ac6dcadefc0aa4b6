package sqlite

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestStringAndLongRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, ok, err := s.ReadString(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	binary := string([]byte{'T', 0, 0xff, '\n'})
	require.NoError(t, s.WriteString(ctx, "v", binary))
	got, ok, err := s.ReadString(ctx, "v")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, binary, got)

	require.NoError(t, s.WriteLong(ctx, "t", 1717171717171))
	n, ok, err := s.ReadLong(ctx, "t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1717171717171), n)

	// a string key is not readable as a long and vice versa
	_, ok, err = s.ReadLong(ctx, "v")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.ReadString(ctx, "t")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteEntryOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.WriteEntry(ctx, "tc:v:a", "one", "tc:t:a", 1))
	require.NoError(t, s.WriteEntry(ctx, "tc:v:a", "two", "tc:t:a", 2))

	v, _, _ := s.ReadString(ctx, "tc:v:a")
	n, _, _ := s.ReadLong(ctx, "tc:t:a")
	assert.Equal(t, "two", v)
	assert.Equal(t, int64(2), n)
}

func TestKeysPrefixIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	for _, k := range []string{"tc:v:trans_1", "tc:v:trans_2", "tc:v:Trans_3", "tc:v:t%_x", "other"} {
		require.NoError(t, s.WriteString(ctx, k, "x"))
	}
	keys, err := s.Keys(ctx, "tc:v:trans_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"tc:v:trans_1", "tc:v:trans_2"}, keys)

	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRemoveAndClearAll(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.WriteString(ctx, "a", "1"))
	require.NoError(t, s.WriteLong(ctx, "b", 2))
	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Remove(ctx, "never-there"))

	_, ok, _ := s.ReadString(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, s.ClearAll(ctx))
	require.NoError(t, s.ClearAll(ctx))
	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteEntry(ctx, "tc:v:categories", "payload", "tc:t:categories", 42))
	require.NoError(t, s.Close(ctx))

	s2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close(ctx) })
	v, ok, err := s2.ReadString(ctx, "tc:v:categories")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	require.NoError(t, s.WriteLong(ctx, "k", 7))
	n, ok, err := s.ReadLong(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
}
