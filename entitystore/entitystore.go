// Package entitystore implements the addressable entity layer (§3.1, §4.4):
// CRUD on Entities plus the directed relation graph over them. Every
// conversation, document, and asset is an Entity; relations form a typed
// graph, unique on (from_id, to_id, relation).
package entitystore

import (
	"context"

	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is the contract consumed by every component that needs identity,
// naming, or the relation graph. Concrete backends: entitystore/postgres
// (CRUD over a relational table) and entitystore/graph (relation traversal
// over a property graph). A single deployment may use one for CRUD and the
// other purely for graph queries over the same ids.
type Store interface {
	CreateEntity(ctx context.Context, e schema.Entity) (schema.Entity, error)
	GetEntity(ctx context.Context, id ids.EntityID) (schema.Entity, error)
	GetEntityBySlug(ctx context.Context, slug string) (schema.Entity, error)
	UpdateEntity(ctx context.Context, e schema.Entity) error
	DeleteEntity(ctx context.Context, id ids.EntityID) error // cascades relations only

	// ListEntitiesInRange returns non-archived entities with updated_at in
	// [start, end], ordered by updated_at descending.
	ListEntitiesInRange(ctx context.Context, userID ids.UserID, start, end int64) ([]schema.Entity, error)

	AddRelation(ctx context.Context, r schema.Relation) error
	RemoveRelation(ctx context.Context, fromID, toID ids.EntityID, relation string) error
	ListRelations(ctx context.Context, fromID ids.EntityID, relation string) ([]schema.Relation, error)
}
