package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lookatitude/agentcore/ids"
)

func TestExecutionContext_IsReady(t *testing.T) {
	tests := []struct {
		name string
		ec   ExecutionContext
		want bool
	}{
		{"zero value", ExecutionContext{}, false},
		{"missing model id", ExecutionContext{UserID: "u1", ConversationID: "c1", TurnID: "t1"}, false},
		{"missing turn id", ExecutionContext{UserID: "u1", ConversationID: "c1", ModelID: "gpt-4o"}, false},
		{"fully populated", ExecutionContext{UserID: "u1", ConversationID: "c1", TurnID: "t1", ModelID: "gpt-4o"}, true},
		{"span id not required", ExecutionContext{UserID: "u1", ConversationID: "c1", TurnID: "t1", ModelID: "gpt-4o", SpanID: ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ec.IsReady())
		})
	}
}

func TestNewExecutionContext(t *testing.T) {
	ec := NewExecutionContext("u1", ids.ConversationID("c1"), ids.TurnID("t1"), ids.SpanID("s1"), "gpt-4o")
	assert.Equal(t, "u1", ec.UserID)
	assert.Equal(t, "c1", ec.ConversationID)
	assert.Equal(t, "t1", ec.TurnID)
	assert.Equal(t, "s1", ec.SpanID)
	assert.Equal(t, "gpt-4o", ec.ModelID)
	assert.True(t, ec.IsReady())
}

func TestExecutionContext_InjectInto(t *testing.T) {
	ec := ExecutionContext{UserID: "u1", ConversationID: "c1", TurnID: "t1", ModelID: "gpt-4o"}
	original := map[string]any{"city": "nyc"}

	injected := ec.InjectInto(original)

	assert.Equal(t, "nyc", injected["city"])

	ctxVal, ok := injected["_context"].(map[string]any)
	if !ok {
		t.Fatalf("expected _context to be a map[string]any, got %T", injected["_context"])
	}
	assert.Equal(t, "u1", ctxVal["user_id"])
	assert.Equal(t, "c1", ctxVal["conversation_id"])
	assert.Equal(t, "t1", ctxVal["turn_id"])
	assert.Equal(t, "gpt-4o", ctxVal["model_id"])

	// original map must be untouched.
	_, hasContext := original["_context"]
	assert.False(t, hasContext)
}

func TestExecutionContext_InjectInto_OmitsEmptySpanID(t *testing.T) {
	ec := ExecutionContext{UserID: "u1", ConversationID: "c1", TurnID: "t1", ModelID: "gpt-4o"}
	injected := ec.InjectInto(map[string]any{})
	ctxVal := injected["_context"].(map[string]any)
	_, hasSpan := ctxVal["span_id"]
	assert.False(t, hasSpan)
}
