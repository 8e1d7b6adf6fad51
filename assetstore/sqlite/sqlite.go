// Package sqlite implements assetstore.Store over database/sql using
// modernc.org/sqlite (pure Go, no CGO), sharing conventions with
// turnstore/sqlite and textstore: a caller-owned *sql.DB, an EnsureTable
// step, and errors reported via core.Error.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/lookatitude/agentcore/assetstore"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is a SQLite-backed assetstore.Store.
type Store struct {
	db *sql.DB
}

// New wraps an existing *sql.DB. Callers must call EnsureTable once.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ assetstore.Store = (*Store)(nil)

// EnsureTable creates the assets table if it does not already exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			blob_hash TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			local_path TEXT,
			is_private INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_assets_blob_hash ON assets(blob_hash);
	`)
	if err != nil {
		return core.NewError("assetstore/sqlite.EnsureTable", core.ErrIO, "create table", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, a schema.Asset) (schema.Asset, error) {
	if a.ID == "" {
		a.ID = ids.AssetID(ids.New())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, blob_hash, mime_type, size_bytes, local_path, is_private, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), a.BlobHash, a.MimeType, a.SizeBytes, a.LocalPath, boolToInt(a.IsPrivate), a.CreatedAt)
	if err != nil {
		return schema.Asset{}, core.NewError("assetstore/sqlite.Create", core.ErrIO, "insert", err)
	}
	return a, nil
}

func (s *Store) Get(ctx context.Context, id ids.AssetID) (schema.Asset, error) {
	var a schema.Asset
	var localPath sql.NullString
	var isPrivate int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, blob_hash, mime_type, size_bytes, local_path, is_private, created_at
		FROM assets WHERE id = ?`, string(id)).
		Scan(&a.ID, &a.BlobHash, &a.MimeType, &a.SizeBytes, &localPath, &isPrivate, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return schema.Asset{}, core.NewError("assetstore/sqlite.Get", core.ErrNotFound, "asset "+string(id), err)
	}
	if err != nil {
		return schema.Asset{}, core.NewError("assetstore/sqlite.Get", core.ErrIO, "scan", err)
	}
	a.LocalPath = localPath.String
	a.IsPrivate = isPrivate != 0
	return a, nil
}

func (s *Store) Exists(ctx context.Context, id ids.AssetID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE id = ?`, string(id)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, core.NewError("assetstore/sqlite.Exists", core.ErrIO, "query", err)
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id ids.AssetID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, string(id))
	if err != nil {
		return core.NewError("assetstore/sqlite.Delete", core.ErrIO, "delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewError("assetstore/sqlite.Delete", core.ErrNotFound, "asset "+string(id), nil)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
