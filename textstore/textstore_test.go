package textstore

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(Config{DB: db})
	require.NoError(t, err)
	require.NoError(t, s.EnsureTable(context.Background()))
	return s
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestStore_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, isNew, err := s.Store(ctx, schema.ContentBlock{Text: "hello world"})
	require.NoError(t, err)
	assert.True(t, isNew)

	block, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", block.Text)
	assert.Equal(t, computeHash("hello world"), block.Hash)
}

func TestStore_StoreDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, isNew1, err := s.Store(ctx, schema.ContentBlock{Text: "duplicate"})
	require.NoError(t, err)
	assert.True(t, isNew1)

	id2, isNew2, err := s.Store(ctx, schema.ContentBlock{Text: "duplicate"})
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Equal(t, id1, id2)
}

func TestStore_GetText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _, err := s.Store(ctx, schema.ContentBlock{Text: "get text shortcut"})
	require.NoError(t, err)

	text, err := s.GetText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "get text shortcut", text)
}

func TestStore_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, ids.ContentBlockID("missing"))
	require.Error(t, err)
	code, ok := core.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, core.ErrNotFound, code)
}

func TestStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.Exists(ctx, ids.ContentBlockID("nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	id, _, err := s.Store(ctx, schema.ContentBlock{Text: "exists check"})
	require.NoError(t, err)

	ok, err = s.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_FindByHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, found, err := s.FindByHash(ctx, computeHash("not stored yet"))
	require.NoError(t, err)
	assert.False(t, found)

	id, _, err := s.Store(ctx, schema.ContentBlock{Text: "find by hash"})
	require.NoError(t, err)

	foundID, found, err := s.FindByHash(ctx, computeHash("find by hash"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, foundID)
}

func TestStore_PreservesMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _, err := s.Store(ctx, schema.ContentBlock{
		Text:       "private block",
		Type:       schema.BlockPlain,
		IsPrivate:  true,
		OriginKind: "user_upload",
	})
	require.NoError(t, err)

	block, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, block.IsPrivate)
	assert.Equal(t, "user_upload", block.OriginKind)
}
