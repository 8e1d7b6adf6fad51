package schema

import "github.com/lookatitude/agentcore/ids"

// EntityType discriminates what an Entity names.
type EntityType string

const (
	EntityConversation EntityType = "conversation"
	EntityDocument     EntityType = "document"
	EntityAsset        EntityType = "asset"
	EntityCollection   EntityType = "collection"
)

// Entity is the unit of identity for anything a user can name, link to, or
// share.
type Entity struct {
	ID         ids.EntityID
	Type       EntityType
	UserID     ids.UserID // nullable only for system entities
	Name       string
	Slug       string // optional; globally unique when set
	IsPrivate  bool
	IsArchived bool
	CreatedAt  int64 // unix millis
	UpdatedAt  int64
}

// Relation is a directed edge in the entity graph, unique on
// (FromID, ToID, Relation).
type Relation struct {
	FromID   ids.EntityID
	ToID     ids.EntityID
	Relation string
	Metadata map[string]any
}

// Blob is the metadata the blob store returns from a write: its content
// address and size. IsNew is true when this call created the file rather
// than finding it already present (dedup hit).
type Blob struct {
	Hash  string
	Size  int64
	IsNew bool
}

// Asset is a named reference to a blob with a mime-type and optional local
// path. Many assets may share one BlobHash.
type Asset struct {
	ID        ids.AssetID
	BlobHash  string
	MimeType  string
	SizeBytes int64
	LocalPath string
	IsPrivate bool
	CreatedAt int64
}

// ContentBlockType discriminates how ContentBlock.Text should be rendered.
type ContentBlockType string

const (
	BlockPlain    ContentBlockType = "plain"
	BlockMarkdown ContentBlockType = "markdown"
	BlockTypst    ContentBlockType = "typst"
)

// ContentBlock is deduplicated text, keyed by SHA-256 of Text.
type ContentBlock struct {
	ID          ids.ContentBlockID
	Hash        string
	Text        string
	Type        ContentBlockType
	IsPrivate   bool
	OriginKind  string // who/what produced it, e.g. "user", "assistant", "tool:<name>"
	ParentID    ids.ContentBlockID
	CreatedAt   int64
}
