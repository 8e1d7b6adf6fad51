// Package agent implements the agent execution loop (§4.8): ToolAgent runs
// the request/respond/call-tools/repeat fixed point against a ChatModel and
// a convctx.Context, dispatching any requested tool calls through a
// tool.Registry and feeding their results back until the model stops
// requesting tools or MaxIterations is reached.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lookatitude/agentcore/convctx"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/docresolve"
	"github.com/lookatitude/agentcore/llm"
	"github.com/lookatitude/agentcore/o11y"
	"github.com/lookatitude/agentcore/schema"
	"github.com/lookatitude/agentcore/tool"
)

// decodeToolArgs parses a tool call's raw JSON arguments into a map. An
// empty string (no arguments) decodes to an empty map rather than an error.
func decodeToolArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, core.NewError("agent.ToolAgent.callTool", core.ErrToolFailed, "decode tool call arguments", err)
	}
	return args, nil
}

// ToolEnricher augments a tool call's arguments before execution, e.g. by
// injecting ExecutionContext. The zero value (nil) is a no-op.
type ToolEnricher func(toolName string, args map[string]any, execCtx ExecutionContext) map[string]any

// ToolAgent runs a fixed-point conversation loop against a ChatModel,
// executing any tool calls the model requests and feeding their results
// back until the model replies without tool calls or MaxIterations is
// reached. Grounded directly on the original implementation's ToolAgent
// (agents/tool_agent.rs): the same request/respond/call-tools/repeat shape,
// adapted to read and write through convctx.Context instead of a flat
// in-memory Vec<ChatMessage>, and to resolve document references before
// every model call (the original's document_resolver.rs is invoked
// upstream of the agent in its caller; here it is folded into the loop
// itself since every ChatModel call needs it).
type ToolAgent struct {
	tools         *tool.Registry
	docs          *docresolve.Resolver
	maxIterations int
	enrich        ToolEnricher
	log           *o11y.Logger
	trace         o11y.TraceExporter
}

// NewToolAgent builds a ToolAgent. docs may be nil if the deployment has no
// DocumentStore wired in, in which case document_ref content passes through
// to the model unresolved (a ChatModel that doesn't understand it will
// simply see an empty or malformed message part; callers needing documents
// must supply a resolver).
func NewToolAgent(tools *tool.Registry, docs *docresolve.Resolver, maxIterations int, opts ...ToolAgentOption) *ToolAgent {
	a := &ToolAgent{tools: tools, docs: docs, maxIterations: maxIterations, log: o11y.NewLogger().With("component", "agent.toolagent")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ToolAgentOption configures a ToolAgent at construction time.
type ToolAgentOption func(*ToolAgent)

// WithToolEnricher sets the function used to augment tool call arguments
// before execution (e.g. injecting ExecutionContext).
func WithToolEnricher(e ToolEnricher) ToolAgentOption {
	return func(a *ToolAgent) { a.enrich = e }
}

// WithLogger overrides the agent's logger.
func WithLogger(log *o11y.Logger) ToolAgentOption {
	return func(a *ToolAgent) { a.log = log }
}

// WithTraceExporter sends a LLMCallData record to exp after every model.Chat
// call in the loop (success or failure), for cost/latency analysis backends.
// A MultiExporter fans out to several backends at once.
func WithTraceExporter(exp o11y.TraceExporter) ToolAgentOption {
	return func(a *ToolAgent) { a.trace = exp }
}

// Execute runs the loop against cc, calling model for each turn. When no
// ToolEnricher is set and execCtx.IsReady(), execCtx is injected into every
// tool call's arguments so tools can recover the conversation/turn/span/model
// ids that produced them; with an enricher set, the enricher alone decides.
func (a *ToolAgent) Execute(ctx context.Context, cc *convctx.Context, model llm.ChatModel, execCtx ExecutionContext) error {
	defs := a.tools.AllDefinitions()

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		guard, err := cc.Messages(ctx)
		if err != nil {
			return err
		}

		request := schema.ChatRequest{Messages: guard.Messages(), Tools: defs}
		if a.docs != nil {
			a.docs.Resolve(ctx, &request)
		}

		start := time.Now()
		response, err := model.Chat(ctx, request)
		if a.trace != nil {
			a.exportTrace(ctx, model, request, response, time.Since(start), err)
		}
		if err != nil {
			return err
		}
		cc.Add(response)

		calls := response.Payload.ToolCalls()
		if len(calls) == 0 {
			break
		}

		for _, call := range calls {
			result := a.callTool(ctx, call, execCtx)
			cc.Add(schema.Message{
				Role: schema.RoleHuman,
				Payload: schema.ChatPayload{Content: []schema.ContentPart{
					schema.ToolResultPart{ToolCallID: call.ID, Content: result.Content},
				}},
			})
		}

		if iteration == a.maxIterations-1 && a.log != nil {
			a.log.Warn(ctx, "tool agent reached max iterations", "max_iterations", a.maxIterations)
		}
	}

	return cc.Commit(ctx)
}

// exportTrace records one model.Chat call to the configured TraceExporter.
// Export failures are logged, not propagated: a broken analytics backend
// must never fail the conversation.
func (a *ToolAgent) exportTrace(ctx context.Context, model llm.ChatModel, request schema.ChatRequest, response schema.Message, dur time.Duration, callErr error) {
	data := o11y.LLMCallData{
		Model:    model.ModelID(),
		Duration: dur,
		Messages: summarizeMessages(request.Messages),
	}
	if callErr != nil {
		data.Error = callErr.Error()
	} else {
		data.Response = map[string]any{"role": string(response.Role), "text": response.Payload.Text()}
	}
	if err := a.trace.ExportLLMCall(ctx, data); err != nil && a.log != nil {
		a.log.Warn(ctx, "trace export failed", "error", err)
	}
}

func summarizeMessages(messages []schema.Message) []map[string]any {
	out := make([]map[string]any, len(messages))
	for i, msg := range messages {
		out[i] = map[string]any{"role": string(msg.Role), "text": msg.Payload.Text()}
	}
	return out
}

// callTool resolves and invokes one tool call, converting a lookup or
// execution failure into an error Result rather than aborting the loop —
// the model sees "Error: ..." and can retry or give up on its own, matching
// the original's `.unwrap_or_else(|e| format!("Error: {}", e))`.
func (a *ToolAgent) callTool(ctx context.Context, call schema.ToolCallPart, execCtx ExecutionContext) *tool.Result {
	t, err := a.tools.Get(call.Name)
	if err != nil {
		return tool.ErrorResult(err)
	}

	args, err := decodeToolArgs(call.Arguments)
	if err != nil {
		return tool.ErrorResult(err)
	}
	if a.enrich != nil {
		args = a.enrich(call.Name, args, execCtx)
	} else if execCtx.IsReady() {
		args = execCtx.InjectInto(args)
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return tool.ErrorResult(err)
	}
	return result
}
