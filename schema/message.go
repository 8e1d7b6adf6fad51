package schema

// Role identifies who produced a ChatMessage.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "user"
	RoleAI     Role = "assistant"
	RoleTool   Role = "tool"
)

// ChatPayload is an ordered list of content parts: the body of a ChatMessage
// or of one ChatChunk.
type ChatPayload struct {
	Content []ContentPart
}

// Text returns a ChatPayload containing a single TextPart. Convenience
// constructor mirroring the original implementation's ChatPayload::text.
func TextPayload(text string) ChatPayload {
	return ChatPayload{Content: []ContentPart{TextPart{Text: text}}}
}

// ToolCalls returns every ToolCallPart in the payload, in arrival order.
func (p ChatPayload) ToolCalls() []ToolCallPart {
	var calls []ToolCallPart
	for _, part := range p.Content {
		if c, ok := part.(ToolCallPart); ok {
			calls = append(calls, c)
		}
	}
	return calls
}

// Text concatenates every TextPart in the payload. Used by providers and by
// the document resolver to read back the user's plain-text intent.
func (p ChatPayload) Text() string {
	var out string
	for _, part := range p.Content {
		if t, ok := part.(TextPart); ok {
			if out != "" {
				out += "\n\n"
			}
			out += t.Text
		}
	}
	return out
}

// Message is the provider-facing representation of one turn in a
// ChatRequest: a role plus a payload. It is distinct from the persisted
// StoredMessage (see turn.go), which additionally carries an id, a span,
// and a sequence number.
type Message struct {
	Role     Role
	Payload  ChatPayload
	Metadata map[string]any
}

// NewSystemMessage builds a system-role Message with a single text part.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Payload: TextPayload(text)}
}

// NewHumanMessage builds a user-role Message with a single text part.
func NewHumanMessage(text string) Message {
	return Message{Role: RoleHuman, Payload: TextPayload(text)}
}

// NewAIMessage builds an assistant-role Message with a single text part.
func NewAIMessage(text string) Message {
	return Message{Role: RoleAI, Payload: TextPayload(text)}
}

// NewToolMessage builds a synthetic user-role Message carrying a single
// ToolResultPart. Tool outputs are modeled as user messages (see §9 of
// SPEC_FULL.md) so role alternation never needs a third role.
func NewToolMessage(toolCallID, text string) Message {
	return Message{
		Role: RoleHuman,
		Payload: ChatPayload{Content: []ContentPart{
			ToolResultPart{ToolCallID: toolCallID, Content: []ContentPart{TextPart{Text: text}}},
		}},
	}
}

// ToolDefinition describes one callable tool to a ChatModel.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ChatRequest is what the agent loop sends to a ChatModel: an ordered history
// plus the tools currently available.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolDefinition
}

// ChatChunk is one increment of a streamed response. Concatenating the text
// content of every chunk and preserving non-text parts in arrival order must
// reconstruct the same Message a non-streaming call would have returned
// (testable property 12).
type ChatChunk struct {
	Role    Role
	Payload ChatPayload
}
