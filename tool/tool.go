// Package tool defines the callable-tool contract the agent execution loop
// uses: a Tool the model can invoke by name, a Registry of such tools, and
// the adapters (function wrapping, middleware, hooks, MCP) that produce
// them. Mirrors the original implementation's ToolRegistry (noema-core/llm),
// generalized from a single closure-backed registry into a Tool interface so
// registries can hold tools backed by Go functions, MCP servers, or anything
// else.
package tool

import (
	"context"

	"github.com/lookatitude/agentcore/schema"
)

// Tool is something an agent can call by name with JSON-object arguments.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (*Result, error)
}

// Result is a tool's reply, structured the same way a model's own content is
// so it flows back into the conversation unchanged via ToolResultPart.
type Result struct {
	Content []schema.ContentPart
	IsError bool
}

// TextResult wraps text as a successful Result.
func TextResult(text string) *Result {
	return &Result{Content: []schema.ContentPart{schema.TextPart{Text: text}}}
}

// ErrorResult wraps err's message as a failed Result, the shape ToolAgent
// feeds back to the model in place of raising (see spec §4.8: a tool error
// becomes `[Text("Error: "+err)]`, not an aborted turn).
func ErrorResult(err error) *Result {
	return &Result{
		Content: []schema.ContentPart{schema.TextPart{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}

// ToDefinition describes t the way a ChatRequest needs: name, description,
// and input schema, with no execution capability attached.
func ToDefinition(t Tool) schema.ToolDefinition {
	return schema.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}
