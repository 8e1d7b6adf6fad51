// Package inmemory provides an in-process entitystore.Store, used in tests
// and as the default store for ephemeral sessions.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/entitystore"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

type relationKey struct {
	from, to ids.EntityID
	relation string
}

// Store is a mutex-guarded map-backed entitystore.Store.
type Store struct {
	mu        sync.Mutex
	entities  map[ids.EntityID]schema.Entity
	bySlug    map[string]ids.EntityID
	relations map[relationKey]schema.Relation
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entities:  make(map[ids.EntityID]schema.Entity),
		bySlug:    make(map[string]ids.EntityID),
		relations: make(map[relationKey]schema.Relation),
	}
}

var _ entitystore.Store = (*Store)(nil)

func (s *Store) CreateEntity(ctx context.Context, e schema.Entity) (schema.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.EntityID(ids.New())
	}
	now := time.Now().UnixMilli()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Slug != "" {
		if _, exists := s.bySlug[e.Slug]; exists {
			return schema.Entity{}, core.NewError("entitystore.CreateEntity", core.ErrConflict, "slug already in use: "+e.Slug, nil)
		}
		s.bySlug[e.Slug] = e.ID
	}
	s.entities[e.ID] = e
	return e, nil
}

func (s *Store) GetEntity(ctx context.Context, id ids.EntityID) (schema.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return schema.Entity{}, core.NewError("entitystore.GetEntity", core.ErrNotFound, "entity "+string(id), nil)
	}
	return e, nil
}

func (s *Store) GetEntityBySlug(ctx context.Context, slug string) (schema.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return schema.Entity{}, core.NewError("entitystore.GetEntityBySlug", core.ErrNotFound, "slug "+slug, nil)
	}
	return s.entities[id], nil
}

func (s *Store) UpdateEntity(ctx context.Context, e schema.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entities[e.ID]
	if !ok {
		return core.NewError("entitystore.UpdateEntity", core.ErrNotFound, "entity "+string(e.ID), nil)
	}
	if e.Slug != existing.Slug {
		if e.Slug != "" {
			if owner, exists := s.bySlug[e.Slug]; exists && owner != e.ID {
				return core.NewError("entitystore.UpdateEntity", core.ErrConflict, "slug already in use: "+e.Slug, nil)
			}
			s.bySlug[e.Slug] = e.ID
		}
		if existing.Slug != "" {
			delete(s.bySlug, existing.Slug)
		}
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UnixMilli()
	s.entities[e.ID] = e
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, id ids.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return core.NewError("entitystore.DeleteEntity", core.ErrNotFound, "entity "+string(id), nil)
	}
	if e.Slug != "" {
		delete(s.bySlug, e.Slug)
	}
	delete(s.entities, id)
	for k := range s.relations {
		if k.from == id || k.to == id {
			delete(s.relations, k)
		}
	}
	return nil
}

func (s *Store) ListEntitiesInRange(ctx context.Context, userID ids.UserID, start, end int64) ([]schema.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Entity
	for _, e := range s.entities {
		if e.UserID != userID || e.IsArchived {
			continue
		}
		if e.UpdatedAt < start || e.UpdatedAt > end {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (s *Store) AddRelation(ctx context.Context, r schema.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[relationKey{r.FromID, r.ToID, r.Relation}] = r
	return nil
}

func (s *Store) RemoveRelation(ctx context.Context, fromID, toID ids.EntityID, relation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.relations, relationKey{fromID, toID, relation})
	return nil
}

func (s *Store) ListRelations(ctx context.Context, fromID ids.EntityID, relation string) ([]schema.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Relation
	for k, r := range s.relations {
		if k.from == fromID && (relation == "" || k.relation == relation) {
			out = append(out, r)
		}
	}
	return out, nil
}
