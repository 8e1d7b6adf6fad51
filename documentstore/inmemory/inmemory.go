// Package inmemory provides an in-process documentstore.Store for tests.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/documentstore"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

type tabRecord struct {
	tab       schema.Tab
	revisions []schema.Revision
}

// Store is a mutex-guarded map-backed documentstore.Store.
type Store struct {
	mu        sync.Mutex
	documents map[ids.DocumentID]schema.Document
	tabs      map[ids.TabID]*tabRecord
	docTabs   map[ids.DocumentID][]ids.TabID
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		documents: make(map[ids.DocumentID]schema.Document),
		tabs:      make(map[ids.TabID]*tabRecord),
		docTabs:   make(map[ids.DocumentID][]ids.TabID),
	}
}

var _ documentstore.Store = (*Store)(nil)

func (s *Store) CreateDocument(ctx context.Context, d schema.Document) (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = ids.DocumentID(ids.New())
	}
	s.documents[d.ID] = d
	return d, nil
}

func (s *Store) GetDocument(ctx context.Context, id ids.DocumentID) (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return schema.Document{}, core.NewError("documentstore.GetDocument", core.ErrNotFound, "document "+string(id), nil)
	}
	return d, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id ids.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return core.NewError("documentstore.DeleteDocument", core.ErrNotFound, "document "+string(id), nil)
	}
	for _, tabID := range s.docTabs[id] {
		delete(s.tabs, tabID)
	}
	delete(s.docTabs, id)
	delete(s.documents, id)
	return nil
}

func (s *Store) CreateTab(ctx context.Context, t schema.Tab) (schema.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[t.DocumentID]; !ok {
		return schema.Tab{}, core.NewError("documentstore.CreateTab", core.ErrNotFound, "document "+string(t.DocumentID), nil)
	}
	if t.ID == "" {
		t.ID = ids.TabID(ids.New())
	}
	s.tabs[t.ID] = &tabRecord{tab: t}
	s.docTabs[t.DocumentID] = append(s.docTabs[t.DocumentID], t.ID)
	return t, nil
}

func (s *Store) ListDocumentTabs(ctx context.Context, docID ids.DocumentID) ([]schema.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Tab
	for _, tabID := range s.docTabs[docID] {
		out = append(out, s.tabs[tabID].tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) GetTab(ctx context.Context, id ids.TabID) (schema.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tabs[id]
	if !ok {
		return schema.Tab{}, core.NewError("documentstore.GetTab", core.ErrNotFound, "tab "+string(id), nil)
	}
	return rec.tab, nil
}

func (s *Store) UpdateTabContent(ctx context.Context, id ids.TabID, markdown string, assets []ids.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tabs[id]
	if !ok {
		return core.NewError("documentstore.UpdateTabContent", core.ErrNotFound, "tab "+string(id), nil)
	}
	rec.tab.ContentMarkdown = markdown
	rec.tab.ReferencedAssets = assets
	rec.tab.UpdatedAt = time.Now().UnixMilli()
	return nil
}

func (s *Store) CreateRevision(ctx context.Context, tabID ids.TabID, markdown, hash string, assets []ids.AssetID, createdBy ids.UserID) (schema.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tabs[tabID]
	if !ok {
		return schema.Revision{}, core.NewError("documentstore.CreateRevision", core.ErrNotFound, "tab "+string(tabID), nil)
	}
	rev := schema.Revision{
		ID:               ids.RevisionID(ids.New()),
		TabID:            tabID,
		RevisionNumber:   len(rec.revisions) + 1,
		Markdown:         markdown,
		ContentHash:      hash,
		ReferencedAssets: assets,
		CreatedBy:        createdBy,
	}
	rec.revisions = append(rec.revisions, rev)
	return rev, nil
}

func (s *Store) SetTabRevision(ctx context.Context, tabID ids.TabID, revisionID ids.RevisionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tabs[tabID]
	if !ok {
		return core.NewError("documentstore.SetTabRevision", core.ErrNotFound, "tab "+string(tabID), nil)
	}
	rec.tab.CurrentRevisionID = revisionID
	return nil
}
