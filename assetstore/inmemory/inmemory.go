// Package inmemory provides an in-process assetstore.Store for tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/lookatitude/agentcore/assetstore"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is a mutex-guarded map-backed assetstore.Store.
type Store struct {
	mu     sync.Mutex
	assets map[ids.AssetID]schema.Asset
}

// New creates an empty Store.
func New() *Store {
	return &Store{assets: make(map[ids.AssetID]schema.Asset)}
}

var _ assetstore.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, a schema.Asset) (schema.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = ids.AssetID(ids.New())
	}
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) Get(ctx context.Context, id ids.AssetID) (schema.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return schema.Asset{}, core.NewError("assetstore.Get", core.ErrNotFound, "asset "+string(id), nil)
	}
	return a, nil
}

func (s *Store) Exists(ctx context.Context, id ids.AssetID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.assets[id]
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, id ids.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return core.NewError("assetstore.Delete", core.ErrNotFound, "asset "+string(id), nil)
	}
	delete(s.assets, id)
	return nil
}
