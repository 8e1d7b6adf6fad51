// Package anthropic provides the Anthropic (Claude) LLM provider.
// It implements the llm.ChatModel interface using the anthropic-sdk-go SDK.
//
// Usage:
//
//	import _ "github.com/lookatitude/agentcore/llm/providers/anthropic"
//
//	model, err := llm.New("anthropic", config.ProviderConfig{
//	    Model:  "claude-sonnet-4-5-20250929",
//	    APIKey: "sk-ant-...",
//	})
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	anthropicSDK "github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/lookatitude/agentcore/config"
	"github.com/lookatitude/agentcore/llm"
	"github.com/lookatitude/agentcore/schema"
)

const defaultMaxTokens = 4096

func init() {
	llm.Register("anthropic", func(cfg config.ProviderConfig) (llm.ChatModel, error) {
		return New(cfg)
	})
}

// Model implements llm.ChatModel using the Anthropic Messages API.
type Model struct {
	client anthropicSDK.Client
	model  string
}

// New creates a new Anthropic ChatModel.
func New(cfg config.ProviderConfig) (*Model, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: model is required")
	}
	opts := []anthropicOption.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, anthropicOption.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicOption.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropicOption.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, anthropicOption.WithMaxRetries(0))
	client := anthropicSDK.NewClient(opts...)
	return &Model{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Chat sends a request and returns a complete assistant response.
func (m *Model) Chat(ctx context.Context, request schema.ChatRequest, opts ...llm.GenerateOption) (schema.Message, error) {
	params, err := m.buildParams(request, opts)
	if err != nil {
		return schema.Message{}, err
	}
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return schema.Message{}, fmt.Errorf("anthropic: generate failed: %w", err)
	}
	return convertResponse(resp), nil
}

// StreamChat sends a request and returns an iterator of response chunks.
func (m *Model) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...llm.GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	params, err := m.buildParams(request, opts)
	if err != nil {
		return func(yield func(schema.ChatChunk, error) bool) {
			yield(schema.ChatChunk{}, err)
		}
	}
	stream := m.client.Messages.NewStreaming(ctx, params)
	return func(yield func(schema.ChatChunk, error) bool) {
		defer stream.Close()
		for stream.Next() {
			event := stream.Current()
			chunk := convertStreamEvent(event)
			if chunk == nil {
				continue
			}
			if !yield(*chunk, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(schema.ChatChunk{}, err)
		}
	}
}

// ModelID returns the model identifier.
func (m *Model) ModelID() string {
	return m.model
}

func (m *Model) buildParams(request schema.ChatRequest, opts []llm.GenerateOption) (anthropicSDK.MessageNewParams, error) {
	genOpts := llm.ApplyOptions(opts...)
	maxTokens := int64(defaultMaxTokens)
	if genOpts.MaxTokens > 0 {
		maxTokens = int64(genOpts.MaxTokens)
	}

	converted, system, err := convertMessages(request.Messages)
	if err != nil {
		return anthropicSDK.MessageNewParams{}, err
	}

	params := anthropicSDK.MessageNewParams{
		Model:     anthropicSDK.Model(m.model),
		MaxTokens: maxTokens,
		Messages:  converted,
	}

	if len(system) > 0 {
		params.System = system
	}

	if len(request.Tools) > 0 {
		params.Tools = convertTools(request.Tools)
	}

	if genOpts.Temperature != nil {
		params.Temperature = anthropicSDK.Float(*genOpts.Temperature)
	}
	if genOpts.TopP != nil {
		params.TopP = anthropicSDK.Float(*genOpts.TopP)
	}
	if len(genOpts.StopSequences) > 0 {
		params.StopSequences = genOpts.StopSequences
	}

	switch genOpts.ToolChoice {
	case llm.ToolChoiceAuto:
		params.ToolChoice = anthropicSDK.ToolChoiceUnionParam{
			OfAuto: &anthropicSDK.ToolChoiceAutoParam{},
		}
	case llm.ToolChoiceNone:
		params.ToolChoice = anthropicSDK.ToolChoiceUnionParam{
			OfNone: &anthropicSDK.ToolChoiceNoneParam{},
		}
	case llm.ToolChoiceRequired:
		params.ToolChoice = anthropicSDK.ToolChoiceUnionParam{
			OfAny: &anthropicSDK.ToolChoiceAnyParam{},
		}
	}
	if genOpts.SpecificTool != "" {
		params.ToolChoice = anthropicSDK.ToolChoiceUnionParam{
			OfTool: &anthropicSDK.ToolChoiceToolParam{
				Name: genOpts.SpecificTool,
			},
		}
	}

	return params, nil
}

func convertMessages(msgs []schema.Message) ([]anthropicSDK.MessageParam, []anthropicSDK.TextBlockParam, error) {
	var system []anthropicSDK.TextBlockParam
	out := make([]anthropicSDK.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case schema.RoleSystem:
			system = append(system, anthropicSDK.TextBlockParam{Text: msg.Payload.Text()})
		case schema.RoleHuman:
			blocks, err := convertContentParts(msg.Payload.Content)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, anthropicSDK.NewUserMessage(blocks...))
		case schema.RoleAI:
			blocks := convertAIContentParts(msg.Payload)
			out = append(out, anthropicSDK.NewAssistantMessage(blocks...))
		default:
			return nil, nil, fmt.Errorf("anthropic: unsupported message role %q", msg.Role)
		}
	}
	return out, system, nil
}

func convertContentParts(parts []schema.ContentPart) ([]anthropicSDK.ContentBlockParamUnion, error) {
	blocks := make([]anthropicSDK.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch cp := p.(type) {
		case schema.TextPart:
			blocks = append(blocks, anthropicSDK.NewTextBlock(cp.Text))
		case schema.ImagePart:
			mime := cp.MimeType
			if mime == "" {
				mime = "image/png"
			}
			blocks = append(blocks, anthropicSDK.NewImageBlockBase64(mime, cp.DataBase64))
		case schema.ToolResultPart:
			var text string
			for _, c := range cp.Content {
				if t, ok := c.(schema.TextPart); ok {
					text += t.Text
				}
			}
			blocks = append(blocks, anthropicSDK.NewToolResultBlock(cp.ToolCallID, text, false))
		default:
			return nil, fmt.Errorf("anthropic: unsupported content part %T", p)
		}
	}
	return blocks, nil
}

func convertAIContentParts(payload schema.ChatPayload) []anthropicSDK.ContentBlockParamUnion {
	var blocks []anthropicSDK.ContentBlockParamUnion
	if text := payload.Text(); text != "" {
		blocks = append(blocks, anthropicSDK.NewTextBlock(text))
	}
	for _, tc := range payload.ToolCalls() {
		var input any
		json.Unmarshal([]byte(tc.Arguments), &input)
		blocks = append(blocks, anthropicSDK.NewToolUseBlock(tc.ID, input, tc.Name))
	}
	return blocks
}

func convertTools(tools []schema.ToolDefinition) []anthropicSDK.ToolUnionParam {
	out := make([]anthropicSDK.ToolUnionParam, len(tools))
	for i, t := range tools {
		tp := anthropicSDK.ToolParam{
			Name: t.Name,
			InputSchema: anthropicSDK.ToolInputSchemaParam{
				Properties: t.InputSchema["properties"],
			},
		}
		if t.Description != "" {
			tp.Description = anthropicSDK.String(t.Description)
		}
		if req, ok := t.InputSchema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					tp.InputSchema.Required = append(tp.InputSchema.Required, s)
				}
			}
		}
		out[i] = anthropicSDK.ToolUnionParam{OfTool: &tp}
	}
	return out
}

func convertResponse(resp *anthropicSDK.Message) schema.Message {
	if resp == nil {
		return schema.Message{Role: schema.RoleAI}
	}
	var parts []schema.ContentPart
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			parts = append(parts, schema.TextPart{Text: block.Text})
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			parts = append(parts, schema.ToolCallPart{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(args),
			})
		}
	}
	return schema.Message{
		Role:    schema.RoleAI,
		Payload: schema.ChatPayload{Content: parts},
		Metadata: map[string]any{
			"model_id":      string(resp.Model),
			"input_tokens":  int(resp.Usage.InputTokens),
			"output_tokens": int(resp.Usage.OutputTokens),
		},
	}
}

func convertStreamEvent(event anthropicSDK.MessageStreamEventUnion) *schema.ChatChunk {
	switch event.Type {
	case "content_block_delta":
		if event.Delta.Type == "text_delta" {
			return &schema.ChatChunk{Role: schema.RoleAI, Payload: schema.TextPayload(event.Delta.Text)}
		}
		if event.Delta.Type == "input_json_delta" {
			return &schema.ChatChunk{
				Role: schema.RoleAI,
				Payload: schema.ChatPayload{Content: []schema.ContentPart{
					schema.ToolCallPart{Arguments: event.Delta.PartialJSON},
				}},
			}
		}
		return nil
	case "content_block_start":
		if event.ContentBlock.Type == "tool_use" {
			return &schema.ChatChunk{
				Role: schema.RoleAI,
				Payload: schema.ChatPayload{Content: []schema.ContentPart{
					schema.ToolCallPart{ID: event.ContentBlock.ID, Name: event.ContentBlock.Name},
				}},
			}
		}
		return nil
	default:
		return nil
	}
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}
