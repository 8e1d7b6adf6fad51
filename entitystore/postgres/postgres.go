// Package postgres implements entitystore.Store over PostgreSQL using
// database/sql and github.com/lib/pq. Relations are kept in a companion
// table; CRUD on entities and relation add/remove/list are plain
// parameterized SQL, no ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/entitystore"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is a PostgreSQL-backed entitystore.Store.
type Store struct {
	db *sql.DB
}

// New opens a Store against dsn (a "postgres://..." connection string).
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, core.NewError("entitystore/postgres.New", core.ErrIO, "open", err)
	}
	return &Store{db: db}, nil
}

var _ entitystore.Store = (*Store)(nil)

// EnsureSchema creates the entities and entity_relations tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			user_id TEXT,
			name TEXT,
			slug TEXT UNIQUE,
			is_private BOOLEAN NOT NULL DEFAULT FALSE,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entities_user_updated ON entities(user_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS entity_relations (
			from_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			to_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			relation TEXT NOT NULL,
			metadata JSONB,
			PRIMARY KEY (from_id, to_id, relation)
		);
		CREATE INDEX IF NOT EXISTS idx_entity_relations_from ON entity_relations(from_id, relation);
	`)
	if err != nil {
		return core.NewError("entitystore/postgres.EnsureSchema", core.ErrIO, "create tables", err)
	}
	return nil
}

func (s *Store) CreateEntity(ctx context.Context, e schema.Entity) (schema.Entity, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (id, entity_type, user_id, name, slug, is_private, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		string(e.ID), string(e.Type), string(e.UserID), e.Name, e.Slug, e.IsPrivate, e.IsArchived, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return schema.Entity{}, core.NewError("entitystore/postgres.CreateEntity", core.ErrIO, "insert", err)
	}
	return e, nil
}

func (s *Store) scanEntity(row *sql.Row) (schema.Entity, error) {
	var e schema.Entity
	var userID, slug sql.NullString
	err := row.Scan(&e.ID, &e.Type, &userID, &e.Name, &slug, &e.IsPrivate, &e.IsArchived, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return schema.Entity{}, core.NewError("entitystore/postgres.Get", core.ErrNotFound, "entity not found", err)
	}
	if err != nil {
		return schema.Entity{}, core.NewError("entitystore/postgres.Get", core.ErrIO, "scan", err)
	}
	e.UserID = ids.UserID(userID.String)
	e.Slug = slug.String
	return e, nil
}

func (s *Store) GetEntity(ctx context.Context, id ids.EntityID) (schema.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, user_id, name, slug, is_private, is_archived, created_at, updated_at
		FROM entities WHERE id = $1`, string(id))
	return s.scanEntity(row)
}

func (s *Store) GetEntityBySlug(ctx context.Context, slug string) (schema.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, user_id, name, slug, is_private, is_archived, created_at, updated_at
		FROM entities WHERE slug = $1`, slug)
	return s.scanEntity(row)
}

func (s *Store) UpdateEntity(ctx context.Context, e schema.Entity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE entities SET name = $2, slug = NULLIF($3, ''), is_private = $4, is_archived = $5, updated_at = $6
		WHERE id = $1`,
		string(e.ID), e.Name, e.Slug, e.IsPrivate, e.IsArchived, e.UpdatedAt)
	if err != nil {
		return core.NewError("entitystore/postgres.UpdateEntity", core.ErrIO, "update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewError("entitystore/postgres.UpdateEntity", core.ErrNotFound, "entity "+string(e.ID), nil)
	}
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, id ids.EntityID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, string(id))
	if err != nil {
		return core.NewError("entitystore/postgres.DeleteEntity", core.ErrIO, "delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewError("entitystore/postgres.DeleteEntity", core.ErrNotFound, "entity "+string(id), nil)
	}
	return nil
}

func (s *Store) ListEntitiesInRange(ctx context.Context, userID ids.UserID, start, end int64) ([]schema.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, user_id, name, slug, is_private, is_archived, created_at, updated_at
		FROM entities
		WHERE user_id = $1 AND is_archived = FALSE AND updated_at BETWEEN $2 AND $3
		ORDER BY updated_at DESC`, string(userID), start, end)
	if err != nil {
		return nil, core.NewError("entitystore/postgres.ListEntitiesInRange", core.ErrIO, "query", err)
	}
	defer rows.Close()

	var out []schema.Entity
	for rows.Next() {
		var e schema.Entity
		var uid, slug sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &uid, &e.Name, &slug, &e.IsPrivate, &e.IsArchived, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, core.NewError("entitystore/postgres.ListEntitiesInRange", core.ErrIO, "scan", err)
		}
		e.UserID = ids.UserID(uid.String)
		e.Slug = slug.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AddRelation(ctx context.Context, r schema.Relation) error {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return core.NewError("entitystore/postgres.AddRelation", core.ErrIO, "marshal metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entity_relations (from_id, to_id, relation, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (from_id, to_id, relation) DO UPDATE SET metadata = EXCLUDED.metadata`,
		string(r.FromID), string(r.ToID), r.Relation, meta)
	if err != nil {
		return core.NewError("entitystore/postgres.AddRelation", core.ErrIO, "insert", err)
	}
	return nil
}

func (s *Store) RemoveRelation(ctx context.Context, fromID, toID ids.EntityID, relation string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM entity_relations WHERE from_id = $1 AND to_id = $2 AND relation = $3`,
		string(fromID), string(toID), relation)
	if err != nil {
		return core.NewError("entitystore/postgres.RemoveRelation", core.ErrIO, "delete", err)
	}
	return nil
}

func (s *Store) ListRelations(ctx context.Context, fromID ids.EntityID, relation string) ([]schema.Relation, error) {
	query := `SELECT from_id, to_id, relation, metadata FROM entity_relations WHERE from_id = $1`
	args := []any{string(fromID)}
	if relation != "" {
		query += ` AND relation = $2`
		args = append(args, relation)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewError("entitystore/postgres.ListRelations", core.ErrIO, "query", err)
	}
	defer rows.Close()

	var out []schema.Relation
	for rows.Next() {
		var r schema.Relation
		var from, to string
		var meta []byte
		if err := rows.Scan(&from, &to, &r.Relation, &meta); err != nil {
			return nil, core.NewError("entitystore/postgres.ListRelations", core.ErrIO, "scan", err)
		}
		r.FromID, r.ToID = ids.EntityID(from), ids.EntityID(to)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &r.Metadata)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
