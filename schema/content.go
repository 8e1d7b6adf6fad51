// Package schema defines the data model shared by every store and by the
// agent/provider boundary: content blocks, messages, entities, the
// conversation tree (turns/spans/messages/views), and documents.
package schema

// ContentType discriminates the variants of ContentPart.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentAudio    ContentType = "audio"
	ContentDocument ContentType = "document_ref"
	ContentToolCall ContentType = "tool_call"
	ContentToolResult ContentType = "tool_result"
)

// ContentPart is one typed fragment of a ChatPayload or a stored message.
type ContentPart interface {
	PartType() ContentType
}

// TextPart is plain or formatted text.
type TextPart struct {
	Text string
}

func (TextPart) PartType() ContentType { return ContentText }

// ImagePart is inline image data, base64-encoded, or a reference.
type ImagePart struct {
	DataBase64 string
	MimeType   string
}

func (ImagePart) PartType() ContentType { return ContentImage }

// AudioPart is inline audio data, base64-encoded.
type AudioPart struct {
	DataBase64 string
	MimeType   string
}

func (AudioPart) PartType() ContentType { return ContentAudio }

// DocumentRefPart references a document for retrieval-augmented prompting.
// It must be resolved out (see package docresolve) before a ChatModel sees it.
type DocumentRefPart struct {
	ID    string
	Title string
}

func (DocumentRefPart) PartType() ContentType { return ContentDocument }

// ToolCallPart is a model-issued request to invoke a tool.
type ToolCallPart struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

func (ToolCallPart) PartType() ContentType { return ContentToolCall }

// ToolResultPart carries the result of a tool invocation back to the model,
// paired to the originating call by ToolCallID.
type ToolResultPart struct {
	ToolCallID string
	Content    []ContentPart // text, image, or audio only
}

func (ToolResultPart) PartType() ContentType { return ContentToolResult }
