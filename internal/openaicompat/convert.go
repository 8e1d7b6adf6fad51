package openaicompat

import (
	"fmt"

	"github.com/lookatitude/agentcore/schema"
	"github.com/openai/openai-go"
)

// ConvertMessages converts a slice of schema Messages to OpenAI API format.
// It supports system, user (with text and image parts), and assistant
// (with text and tool calls) roles. Tool results arrive as user-role
// messages carrying a ToolResultPart (see schema.NewToolMessage) and are
// converted to the dedicated OpenAI tool-role message.
func ConvertMessages(msgs []schema.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := convertMessage(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func convertMessage(msg schema.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case schema.RoleSystem:
		return openai.SystemMessage(msg.Payload.Text()), nil
	case schema.RoleHuman:
		return convertHumanMessage(msg.Payload)
	case schema.RoleAI:
		return convertAIMessage(msg.Payload), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openaicompat: unsupported message role %q", msg.Role)
	}
}

func convertHumanMessage(payload schema.ChatPayload) (openai.ChatCompletionMessageParamUnion, error) {
	if toolResult, ok := soleToolResult(payload.Content); ok {
		var text string
		for _, c := range toolResult.Content {
			if t, ok := c.(schema.TextPart); ok {
				text += t.Text
			}
		}
		return openai.ToolMessage(text, toolResult.ToolCallID), nil
	}

	hasNonText := false
	for _, p := range payload.Content {
		if p.PartType() != schema.ContentText {
			hasNonText = true
			break
		}
	}
	if !hasNonText {
		return openai.UserMessage(payload.Text()), nil
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(payload.Content))
	for _, p := range payload.Content {
		switch cp := p.(type) {
		case schema.TextPart:
			parts = append(parts, openai.TextContentPart(cp.Text))
		case schema.ImagePart:
			if cp.DataBase64 == "" {
				continue
			}
			mime := cp.MimeType
			if mime == "" {
				mime = "image/png"
			}
			url := "data:" + mime + ";base64," + cp.DataBase64
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: url,
			}))
		default:
			// Skip unsupported content types (audio, document refs). The chat
			// completions API only accepts text and images inline.
		}
	}
	return openai.UserMessage(parts), nil
}

// soleToolResult reports whether content is exactly one ToolResultPart, the
// shape schema.NewToolMessage produces.
func soleToolResult(content []schema.ContentPart) (schema.ToolResultPart, bool) {
	if len(content) != 1 {
		return schema.ToolResultPart{}, false
	}
	tr, ok := content[0].(schema.ToolResultPart)
	return tr, ok
}

func convertAIMessage(payload schema.ChatPayload) openai.ChatCompletionMessageParamUnion {
	msg := openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{},
	}
	if text := payload.Text(); text != "" {
		msg.OfAssistant.Content.OfString = openai.String(text)
	}
	if calls := payload.ToolCalls(); len(calls) > 0 {
		params := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
		for i, tc := range calls {
			params[i] = openai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			}
		}
		msg.OfAssistant.ToolCalls = params
	}
	return msg
}

// ConvertResponse converts an OpenAI ChatCompletion response to a schema.Message.
func ConvertResponse(resp *openai.ChatCompletion) schema.Message {
	msg := schema.Message{Role: schema.RoleAI}
	if resp == nil {
		return msg
	}
	msg.Metadata = map[string]any{
		"model_id":      resp.Model,
		"input_tokens":  int(resp.Usage.PromptTokens),
		"output_tokens": int(resp.Usage.CompletionTokens),
	}
	if resp.Usage.PromptTokensDetails.CachedTokens > 0 {
		msg.Metadata["cached_tokens"] = int(resp.Usage.PromptTokensDetails.CachedTokens)
	}
	if len(resp.Choices) == 0 {
		return msg
	}
	choice := resp.Choices[0]
	if choice.Message.Content != "" {
		msg.Payload.Content = append(msg.Payload.Content, schema.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.Payload.Content = append(msg.Payload.Content, schema.ToolCallPart{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}
