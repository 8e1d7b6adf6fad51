package blobstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestStore_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	data := []byte("hello world")
	blob, err := s.Store(ctx, data)
	require.NoError(t, err)
	assert.True(t, blob.IsNew)
	assert.Equal(t, ComputeHash(data), blob.Hash)
	assert.Equal(t, int64(len(data)), blob.Size)

	got, err := s.Get(ctx, blob.Hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_StoreDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	data := []byte("duplicate me")

	first, err := s.Store(ctx, data)
	require.NoError(t, err)
	assert.True(t, first.IsNew)

	second, err := s.Store(ctx, data)
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestStore_GetInto(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	data := []byte("streamed bytes")

	blob, err := s.Store(ctx, data)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.GetInto(ctx, blob.Hash, &buf))
	assert.Equal(t, data, buf.Bytes())
}

func TestStore_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "deadbeef")
	require.Error(t, err)
	code, ok := core.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, core.ErrNotFound, code)
}

func TestStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	data := []byte("exists check")

	ok, err := s.Exists(ctx, ComputeHash(data))
	require.NoError(t, err)
	assert.False(t, ok)

	blob, err := s.Store(ctx, data)
	require.NoError(t, err)

	ok, err = s.Exists(ctx, blob.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	blob, err := s.Store(ctx, []byte("to delete"))
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, blob.Hash)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, blob.Hash)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.Get(ctx, blob.Hash)
	require.Error(t, err)
}

func TestStore_Verify(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	blob, err := s.Store(ctx, []byte("verify me"))
	require.NoError(t, err)

	ok, err := s.Verify(ctx, blob.Hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Verify(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListAllAndTotalSize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	d1, err := s.Store(ctx, []byte("one"))
	require.NoError(t, err)
	d2, err := s.Store(ctx, []byte("two-longer"))
	require.NoError(t, err)

	hashes, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{d1.Hash, d2.Hash}, hashes)

	total, err := s.TotalSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len("one")+len("two-longer")), total)
}

func TestStore_CleanupTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	blob, err := s.Store(ctx, []byte("sharded"))
	require.NoError(t, err)

	shardDir := filepath.Dir(s.PathFor(blob.Hash))
	orphan := filepath.Join(shardDir, blob.Hash+".orphan.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("partial"), 0o644))

	removed, err := s.CleanupTempFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))

	// the real blob survives cleanup.
	ok, err := s.Exists(ctx, blob.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}
