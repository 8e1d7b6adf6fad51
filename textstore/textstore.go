// Package textstore implements the content-addressed text store (§4.3):
// ContentBlocks deduplicated by SHA-256 of their text, independent of blob
// storage. Grounded on the original noema-core storage/content.rs and on the
// donor repository's memory/stores/sqlite SQL-backed store pattern.
package textstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is a database/sql-backed ContentBlockStore. Any driver works;
// agentcore wires modernc.org/sqlite for the default on-disk deployment (see
// turnstore/sqlite, which shares the same *sql.DB).
type Store struct {
	db    *sql.DB
	table string
}

// Config configures a Store.
type Config struct {
	DB    *sql.DB
	Table string // defaults to "content_blocks"
}

// New creates a Store. Callers must call EnsureTable once before use.
func New(cfg Config) (*Store, error) {
	if cfg.DB == nil {
		return nil, core.NewError("textstore.New", core.ErrInvalidRole, "db is required", nil)
	}
	table := cfg.Table
	if table == "" {
		table = "content_blocks"
	}
	return &Store{db: cfg.DB, table: table}, nil
}

// EnsureTable creates the content_blocks table if it does not already exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			id TEXT PRIMARY KEY,
			hash TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'plain',
			is_private INTEGER NOT NULL DEFAULT 0,
			origin_kind TEXT,
			parent_id TEXT,
			created_at INTEGER NOT NULL
		)`)
	if err != nil {
		return core.NewError("textstore.EnsureTable", core.ErrIO, "create table", err)
	}
	return nil
}

func computeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Store inserts block's text if its hash is not already present, returning
// the existing id (IsNew=false) on a dedup hit, or the newly-created id.
func (s *Store) Store(ctx context.Context, block schema.ContentBlock) (ids.ContentBlockID, bool, error) {
	hash := computeHash(block.Text)

	if existing, found, err := s.findByHash(ctx, hash); err != nil {
		return "", false, err
	} else if found {
		return existing, false, nil
	}

	id := ids.ContentBlockID(ids.New())
	blockType := block.Type
	if blockType == "" {
		blockType = schema.BlockPlain
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+s.table+` (id, hash, text, content_type, is_private, origin_kind, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(id), hash, block.Text, string(blockType), boolToInt(block.IsPrivate), block.OriginKind,
		string(block.ParentID), time.Now().UnixMilli())
	if err != nil {
		// A concurrent writer may have inserted the same hash first (UNIQUE
		// constraint); look it up rather than surfacing the race as an error.
		if existing, found, lookupErr := s.findByHash(ctx, hash); lookupErr == nil && found {
			return existing, false, nil
		}
		return "", false, core.NewError("textstore.Store", core.ErrIO, "insert content block", err)
	}
	return id, true, nil
}

func (s *Store) findByHash(ctx context.Context, hash string) (ids.ContentBlockID, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM `+s.table+` WHERE hash = ?`, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.NewError("textstore.findByHash", core.ErrIO, "query", err)
	}
	return ids.ContentBlockID(id), true, nil
}

// Get returns the full ContentBlock for id.
func (s *Store) Get(ctx context.Context, id ids.ContentBlockID) (schema.ContentBlock, error) {
	var block schema.ContentBlock
	var blockType, parentID, originKind sql.NullString
	var isPrivate int
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hash, text, content_type, is_private, origin_kind, parent_id, created_at
		FROM `+s.table+` WHERE id = ?`, string(id)).
		Scan(&block.ID, &block.Hash, &block.Text, &blockType, &isPrivate, &originKind, &parentID, &createdAt)
	if err == sql.ErrNoRows {
		return schema.ContentBlock{}, core.NewError("textstore.Get", core.ErrNotFound, "content block "+string(id), err)
	}
	if err != nil {
		return schema.ContentBlock{}, core.NewError("textstore.Get", core.ErrIO, "query", err)
	}
	block.ID = id
	block.Type = schema.ContentBlockType(blockType.String)
	block.IsPrivate = isPrivate != 0
	block.OriginKind = originKind.String
	block.ParentID = ids.ContentBlockID(parentID.String)
	block.CreatedAt = createdAt
	return block, nil
}

// GetText is a convenience shortcut over Get that returns only the text.
func (s *Store) GetText(ctx context.Context, id ids.ContentBlockID) (string, error) {
	block, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return block.Text, nil
}

// Exists reports whether id is present.
func (s *Store) Exists(ctx context.Context, id ids.ContentBlockID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+s.table+` WHERE id = ?`, string(id)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, core.NewError("textstore.Exists", core.ErrIO, "query", err)
	}
	return true, nil
}

// FindByHash returns the block id already storing text with the given hash,
// if any.
func (s *Store) FindByHash(ctx context.Context, hash string) (ids.ContentBlockID, bool, error) {
	return s.findByHash(ctx, hash)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
