package agent

import (
	"encoding/json"

	"github.com/lookatitude/agentcore/ids"
)

// ExecutionContext carries identifiers the system knows about a tool call
// that the model itself does not: which conversation, turn, and span the
// call originated from, and which model requested it. When it IsReady and
// no ToolEnricher is configured, ToolAgent injects it into every tool call's
// arguments under the "_context" key so tools that
// need system identity (e.g. a tool that schedules a follow-up turn) can
// recover it without the model having to supply it. Grounded directly on
// the original implementation's ExecutionContext (agents/execution_context.rs).
type ExecutionContext struct {
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	TurnID         string `json:"turn_id,omitempty"`
	SpanID         string `json:"span_id,omitempty"`
	ModelID        string `json:"model_id,omitempty"`
}

// NewExecutionContext builds a fully populated ExecutionContext.
func NewExecutionContext(userID string, conversationID ids.ConversationID, turnID ids.TurnID, spanID ids.SpanID, modelID string) ExecutionContext {
	return ExecutionContext{
		UserID:         userID,
		ConversationID: string(conversationID),
		TurnID:         string(turnID),
		SpanID:         string(spanID),
		ModelID:        modelID,
	}
}

// IsReady reports whether every field required to address a turn is set.
// SpanID is intentionally excluded: a turn with no span selected yet (a
// sparse view slot) is still addressable by conversation, turn, and model.
func (c ExecutionContext) IsReady() bool {
	return c.UserID != "" && c.ConversationID != "" && c.TurnID != "" && c.ModelID != ""
}

// InjectInto returns a copy of args with this context attached under
// "_context", so the model's own call arguments are never mutated.
func (c ExecutionContext) InjectInto(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	if raw, err := json.Marshal(c); err == nil {
		var asMap map[string]any
		if json.Unmarshal(raw, &asMap) == nil {
			out["_context"] = asMap
		}
	}
	return out
}
