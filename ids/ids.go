// Package ids defines the type-distinct identifiers used throughout the
// storage layer. Every id is a random UUID rendered as a string; the wrapper
// types exist so the compiler rejects passing a SpanID where a TurnID is
// expected, even though both are, underneath, opaque strings.
package ids

import "github.com/google/uuid"

// UserID identifies the owner of entities.
type UserID string

// EntityID identifies a row in the addressable entity layer.
type EntityID string

// AssetID identifies a named reference to a blob.
type AssetID string

// ContentBlockID identifies a deduplicated text record in the text store.
type ContentBlockID string

// DocumentID identifies a document.
type DocumentID string

// TabID identifies a tab within a document.
type TabID string

// RevisionID identifies an immutable snapshot of a tab.
type RevisionID string

// ConversationID identifies a conversation entity.
type ConversationID string

// TurnID identifies a position in a conversation.
type TurnID string

// SpanID identifies one realization of a turn.
type SpanID string

// MessageID identifies a message within a span.
type MessageID string

// MessageContentID identifies one content item within a message.
type MessageContentID string

// ViewID identifies a named selection function from turns to spans.
type ViewID string

// New returns a fresh random UUID rendered as a string. Callers convert it to
// the id type they need: ids.TurnID(ids.New()).
func New() string {
	return uuid.NewString()
}
