// Package documentstore implements the DocumentStore (§3.5, §4.5): CRUD on
// documents, their ordered tabs, and immutable revisions. Tab updates
// replace content_markdown and referenced_assets atomically and bump
// updated_at; revision numbers are contiguous and strictly increasing per
// tab.
package documentstore

import (
	"context"

	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Store is the contract consumed by the document reference resolver
// (package docresolve) and by any front-end's document editor.
type Store interface {
	CreateDocument(ctx context.Context, d schema.Document) (schema.Document, error)
	GetDocument(ctx context.Context, id ids.DocumentID) (schema.Document, error)
	DeleteDocument(ctx context.Context, id ids.DocumentID) error // cascades tabs and revisions

	CreateTab(ctx context.Context, t schema.Tab) (schema.Tab, error)
	ListDocumentTabs(ctx context.Context, docID ids.DocumentID) ([]schema.Tab, error)
	GetTab(ctx context.Context, id ids.TabID) (schema.Tab, error)

	// UpdateTabContent atomically replaces content_markdown and
	// referenced_assets and bumps the tab's updated_at.
	UpdateTabContent(ctx context.Context, id ids.TabID, markdown string, assets []ids.AssetID) error

	// CreateRevision appends an immutable snapshot; revision numbers are
	// contiguous and strictly increasing within a tab.
	CreateRevision(ctx context.Context, tabID ids.TabID, markdown, hash string, assets []ids.AssetID, createdBy ids.UserID) (schema.Revision, error)
	SetTabRevision(ctx context.Context, tabID ids.TabID, revisionID ids.RevisionID) error
}
