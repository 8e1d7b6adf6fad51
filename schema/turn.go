package schema

import "github.com/lookatitude/agentcore/ids"

// TurnRole is the role of a position in the conversation backbone. Unlike
// schema.Role (the provider-facing role, which also has "system"), a Turn is
// always user or assistant.
type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// Turn is a position in a conversation: a role and a sequence number, no
// content of its own.
type Turn struct {
	ID             ids.TurnID
	ConversationID ids.ConversationID
	Role           TurnRole
	SequenceNumber int
	CreatedAt      int64
}

// Span is one concrete realization of a Turn. Immutable once any message has
// been added to it (SpanSealed is returned on further AddMessage calls).
type Span struct {
	ID        ids.SpanID
	TurnID    ids.TurnID
	ModelID   string // empty for user turns, or when unknown
	CreatedAt int64
}

// StoredContentKind discriminates the variants of StoredContent, matching
// the message_content.content_type column.
type StoredContentKind string

const (
	StoredText        StoredContentKind = "text"
	StoredAssetRef     StoredContentKind = "asset_ref"
	StoredDocumentRef  StoredContentKind = "document_ref"
	StoredToolCall     StoredContentKind = "tool_call"
	StoredToolResult   StoredContentKind = "tool_result"
)

// StoredContent is the typed union of what a caller passes to AddMessage.
// Exactly one of the fields below is meaningful, selected by Kind.
type StoredContent struct {
	Kind StoredContentKind

	// Kind == StoredText
	Text string

	// Kind == StoredAssetRef
	AssetID  ids.AssetID
	MimeType string
	Filename string

	// Kind == StoredDocumentRef
	DocumentID ids.DocumentID
	Title      string

	// Kind == StoredToolCall
	ToolCall ToolCallPart

	// Kind == StoredToolResult
	ToolResult ToolResultPart
}

// StoredText builds a StoredContent wrapping plain text.
func NewStoredText(text string) StoredContent { return StoredContent{Kind: StoredText, Text: text} }

// NewStoredAssetRef builds a StoredContent wrapping an asset reference.
func NewStoredAssetRef(id ids.AssetID, mimeType, filename string) StoredContent {
	return StoredContent{Kind: StoredAssetRef, AssetID: id, MimeType: mimeType, Filename: filename}
}

// NewStoredDocumentRef builds a StoredContent wrapping a document reference.
func NewStoredDocumentRef(id ids.DocumentID, title string) StoredContent {
	return StoredContent{Kind: StoredDocumentRef, DocumentID: id, Title: title}
}

// NewStoredToolCall builds a StoredContent wrapping a tool call.
func NewStoredToolCall(call ToolCallPart) StoredContent {
	return StoredContent{Kind: StoredToolCall, ToolCall: call}
}

// NewStoredToolResult builds a StoredContent wrapping a tool result.
func NewStoredToolResult(result ToolResultPart) StoredContent {
	return StoredContent{Kind: StoredToolResult, ToolResult: result}
}

// MessageContent is one persisted, sequenced fragment of a Message: the
// result of materializing a StoredContent item, with the resolved text for
// text items carried alongside the block id.
type MessageContent struct {
	ID             ids.MessageContentID
	MessageID      ids.MessageID
	SequenceNumber int
	Kind           StoredContentKind

	ContentBlockID ids.ContentBlockID
	Text           string // decoded text, populated when Kind == StoredText

	AssetID  ids.AssetID
	MimeType string
	Filename string

	DocumentID ids.DocumentID
	Title      string

	ToolCall   ToolCallPart
	ToolResult ToolResultPart
}

// StoredMessage is a sequenced, role-tagged element of a Span. Distinct from
// schema.Message, which is the provider-facing chat message passed to a
// ChatModel: a StoredMessage is a persisted row, identified and sequenced,
// with its content resolved separately via MessageContent.
type StoredMessage struct {
	ID             ids.MessageID
	SpanID         ids.SpanID
	SequenceNumber int
	Role           Role
	CreatedAt      int64
}

// MessageWithContent is a StoredMessage plus its resolved content items, in order.
type MessageWithContent struct {
	StoredMessage
	Content []MessageContent
}

// SpanWithMessages is a Span plus its messages, each resolved with content.
type SpanWithMessages struct {
	Span
	Messages []MessageWithContent
}

// TurnWithContent is a Turn plus, if selected by the view in question, its
// selected span resolved with messages and content.
type TurnWithContent struct {
	Turn
	Span     *SpanWithMessages // nil when the view has no selection at this turn
}

// View is a named selection function from turns to spans.
type View struct {
	ID             ids.ViewID
	ConversationID ids.ConversationID
	Name           string
	IsMain         bool
	ForkedFromView ids.ViewID // empty if not a fork
	ForkedAtTurn   ids.TurnID // empty if not a fork
	CreatedAt      int64
}

// Conversation is an Entity of type "conversation".
type Conversation struct {
	Entity
	MainViewID ids.ViewID
}
