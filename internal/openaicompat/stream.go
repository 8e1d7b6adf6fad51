package openaicompat

import (
	"iter"

	"github.com/lookatitude/agentcore/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// StreamToSeq converts an openai-go SSE stream into an iter.Seq2 of ChatChunks.
// Each yielded chunk carries that SSE event's text delta and tool-call
// fragments as received; fragments of one tool call are not merged across
// chunks (a call's ID and name arrive only on its first fragment).
func StreamToSeq(stream *ssestream.Stream[openai.ChatCompletionChunk]) iter.Seq2[schema.ChatChunk, error] {
	return func(yield func(schema.ChatChunk, error) bool) {
		defer stream.Close()
		for stream.Next() {
			cc := convertChunk(stream.Current())
			if !yield(cc, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(schema.ChatChunk{}, err)
		}
	}
}

// convertChunk converts an OpenAI stream chunk to a schema.ChatChunk.
func convertChunk(chunk openai.ChatCompletionChunk) schema.ChatChunk {
	cc := schema.ChatChunk{Role: schema.RoleAI}
	if len(chunk.Choices) == 0 {
		return cc
	}
	delta := chunk.Choices[0].Delta
	if delta.Content != "" {
		cc.Payload.Content = append(cc.Payload.Content, schema.TextPart{Text: delta.Content})
	}
	for _, tc := range delta.ToolCalls {
		cc.Payload.Content = append(cc.Payload.Content, schema.ToolCallPart{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return cc
}
