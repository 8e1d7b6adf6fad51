package schema

import "github.com/lookatitude/agentcore/ids"

// DocumentSource names where a document's content originates.
type DocumentSource string

const (
	SourceGoogleDrive DocumentSource = "google_drive"
	SourceAIGenerated DocumentSource = "ai_generated"
	SourceUserCreated DocumentSource = "user_created"
)

// Document is a user-owned, titled container of ordered Tabs.
type Document struct {
	ID        ids.DocumentID
	UserID    ids.UserID
	Title     string
	Source    DocumentSource
	SourceID  string // optional upstream id, e.g. a Drive file id
	CreatedAt int64
	UpdatedAt int64
}

// Tab is one ordered, nested section of a Document.
type Tab struct {
	ID                ids.TabID
	DocumentID        ids.DocumentID
	ParentTabID        ids.TabID // empty if top-level
	Position          int
	Title             string
	Icon              string
	ContentMarkdown   string
	ReferencedAssets  []ids.AssetID
	CurrentRevisionID ids.RevisionID // empty until a revision has been set
	UpdatedAt         int64
}

// Revision is an immutable snapshot of a Tab's markdown at a point in time.
type Revision struct {
	ID              ids.RevisionID
	TabID           ids.TabID
	RevisionNumber  int
	Markdown        string
	ContentHash     string
	ReferencedAssets []ids.AssetID
	CreatedBy       ids.UserID
	CreatedAt       int64
}
