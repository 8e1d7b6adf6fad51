package agent

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/assetstore/inmemory"
	"github.com/lookatitude/agentcore/blobstore"
	"github.com/lookatitude/agentcore/convctx"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/internal/testutil/mockllm"
	"github.com/lookatitude/agentcore/internal/testutil/mocktool"
	"github.com/lookatitude/agentcore/llm"
	"github.com/lookatitude/agentcore/schema"
	"github.com/lookatitude/agentcore/tool"
	"github.com/lookatitude/agentcore/turnstore"
	turnmem "github.com/lookatitude/agentcore/turnstore/inmemory"
)

type fakeText struct {
	byID map[ids.ContentBlockID]string
}

func newFakeText() *fakeText { return &fakeText{byID: make(map[ids.ContentBlockID]string)} }

func (f *fakeText) Store(ctx context.Context, block schema.ContentBlock) (ids.ContentBlockID, bool, error) {
	id := ids.ContentBlockID(ids.New())
	f.byID[id] = block.Text
	return id, true, nil
}

func (f *fakeText) GetText(ctx context.Context, id ids.ContentBlockID) (string, error) {
	return f.byID[id], nil
}

// newTestContext wires a fresh convctx.Context over in-memory stores, with
// one user turn already committed so the loop has something to read.
func newTestContext(t *testing.T) *convctx.Context {
	t.Helper()
	cc, _, _ := newTestContextWithStore(t)
	return cc
}

// newTestContextWithStore is newTestContext but also returns the underlying
// turnstore.Store and conversation id, for tests that assert turn/span shape
// directly rather than just the flattened Messages() view.
func newTestContextWithStore(t *testing.T) (*convctx.Context, turnstore.Store, ids.ConversationID) {
	t.Helper()
	ctx := context.Background()

	turns := turnmem.New(newFakeText())
	convID := ids.ConversationID(ids.New())
	view, err := turns.CreateView(ctx, convID, "main", true)
	require.NoError(t, err)

	_, _, _, err = turns.AddUserTurn(ctx, convID, "what's the weather?")
	require.NoError(t, err)

	blobs, err := blobstore.New(t.TempDir(), nil)
	require.NoError(t, err)

	cc := convctx.New(convctx.Deps{
		Turns:  turns,
		Assets: inmemory.New(),
		Blobs:  blobs,
	}, convID, view.ID)
	return cc, turns, convID
}

func TestToolAgent_NoToolCalls(t *testing.T) {
	ctx := context.Background()
	cc := newTestContext(t)
	model := mockllm.New(mockllm.WithResponse(schema.Message{
		Role:    schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{schema.TextPart{Text: "it's sunny"}}},
	}))

	a := NewToolAgent(tool.NewRegistry(), nil, 5)
	err := a.Execute(ctx, cc, model, ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, model.Calls())
	guard, err := cc.Messages(ctx)
	require.NoError(t, err)
	last := guard.Messages()[guard.Len()-1]
	assert.Equal(t, schema.RoleAI, last.Role)
	assert.Equal(t, "it's sunny", last.Payload.Text())
}

// flippingModel returns `first` on its first Chat call and `rest` on every
// call after, so a test can drive ToolAgent through exactly one tool-call
// round trip without a stateful mock.
type flippingModel struct {
	calls int
	first schema.Message
	rest  schema.Message
}

func (m *flippingModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...llm.GenerateOption) (schema.Message, error) {
	m.calls++
	if m.calls == 1 {
		return m.first, nil
	}
	return m.rest, nil
}

func (m *flippingModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...llm.GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	return func(yield func(schema.ChatChunk, error) bool) {}
}

func (m *flippingModel) ModelID() string { return "flipping-mock" }

func TestToolAgent_CallsToolThenStops(t *testing.T) {
	ctx := context.Background()
	cc := newTestContext(t)

	weather := mocktool.New("get_weather", "look up the weather",
		mocktool.WithResult(tool.TextResult("72F and sunny")))

	registry := tool.NewRegistry()
	require.NoError(t, registry.Add(weather))

	toolCallMsg := schema.Message{
		Role: schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{
			schema.ToolCallPart{ID: "call_1", Name: "get_weather", Arguments: `{"city":"nyc"}`},
		}},
	}
	finalMsg := schema.Message{
		Role:    schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{schema.TextPart{Text: "it's 72F and sunny"}}},
	}

	model := &flippingModel{first: toolCallMsg, rest: finalMsg}
	a := NewToolAgent(registry, nil, 5)

	err := a.Execute(ctx, cc, model, ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, weather.ExecuteCalls())
	assert.Equal(t, map[string]any{"city": "nyc"}, weather.LastInput())

	guard, err := cc.Messages(ctx)
	require.NoError(t, err)
	msgs := guard.Messages()

	// user turn, AI tool-call message, tool-result message, final AI message.
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.RoleHuman, msgs[2].Role)
	toolResult := msgs[2].Payload.Content[0].(schema.ToolResultPart)
	assert.Equal(t, "call_1", toolResult.ToolCallID)
	assert.Equal(t, "72F and sunny", toolResult.Content[0].(schema.TextPart).Text)
	assert.Equal(t, "it's 72F and sunny", msgs[3].Payload.Text())
}

func TestToolAgent_CallsToolThenStops_StoresOneSpanWithThreeMessages(t *testing.T) {
	ctx := context.Background()
	cc, turns, convID := newTestContextWithStore(t)

	weather := mocktool.New("get_weather", "look up the weather",
		mocktool.WithResult(tool.TextResult("72F and sunny")))
	registry := tool.NewRegistry()
	require.NoError(t, registry.Add(weather))

	toolCallMsg := schema.Message{
		Role: schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{
			schema.ToolCallPart{ID: "call_1", Name: "get_weather", Arguments: `{"city":"nyc"}`},
		}},
	}
	finalMsg := schema.Message{
		Role:    schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{schema.TextPart{Text: "it's 72F and sunny"}}},
	}

	model := &flippingModel{first: toolCallMsg, rest: finalMsg}
	a := NewToolAgent(registry, nil, 5)
	require.NoError(t, a.Execute(ctx, cc, model, ExecutionContext{}))

	allTurns, err := turns.GetTurns(ctx, convID)
	require.NoError(t, err)
	require.Len(t, allTurns, 2, "one user turn plus one assistant turn for the whole round")
	assistantTurn := allTurns[1]
	assert.Equal(t, schema.TurnAssistant, assistantTurn.Role)

	spans, err := turns.GetSpans(ctx, assistantTurn.ID)
	require.NoError(t, err)
	require.Len(t, spans, 1, "the tool-call round lands in a single span")

	msgs, err := turns.GetMessages(ctx, spans[0].ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3, "tool call, tool result, final answer")
}

func TestToolAgent_UnknownToolBecomesErrorResult(t *testing.T) {
	ctx := context.Background()
	cc := newTestContext(t)

	toolCallMsg := schema.Message{
		Role: schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{
			schema.ToolCallPart{ID: "call_1", Name: "does_not_exist", Arguments: "{}"},
		}},
	}
	finalMsg := schema.Message{Role: schema.RoleAI, Payload: schema.ChatPayload{Content: []schema.ContentPart{schema.TextPart{Text: "ok"}}}}

	model := &flippingModel{first: toolCallMsg, rest: finalMsg}
	a := NewToolAgent(tool.NewRegistry(), nil, 5)

	err := a.Execute(ctx, cc, model, ExecutionContext{})
	require.NoError(t, err)

	guard, err := cc.Messages(ctx)
	require.NoError(t, err)
	msgs := guard.Messages()
	toolResult := msgs[2].Payload.Content[0].(schema.ToolResultPart)
	text := toolResult.Content[0].(schema.TextPart).Text
	assert.Contains(t, text, "Error: ")
}

// constantModel always returns the same response, used to drive the
// max-iterations cutoff deterministically.
type constantModel struct {
	calls    int
	response schema.Message
}

func (m *constantModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...llm.GenerateOption) (schema.Message, error) {
	m.calls++
	return m.response, nil
}

func (m *constantModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...llm.GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	return func(yield func(schema.ChatChunk, error) bool) {}
}

func (m *constantModel) ModelID() string { return "constant-mock" }

func TestToolAgent_MaxIterationsStopsLoop(t *testing.T) {
	ctx := context.Background()
	cc := newTestContext(t)

	loopingCall := schema.Message{
		Role: schema.RoleAI,
		Payload: schema.ChatPayload{Content: []schema.ContentPart{
			schema.ToolCallPart{ID: "call_x", Name: "noop", Arguments: "{}"},
		}},
	}
	registry := tool.NewRegistry()
	require.NoError(t, registry.Add(mocktool.New("noop", "does nothing", mocktool.WithResult(tool.TextResult("done")))))

	model := &constantModel{response: loopingCall}
	a := NewToolAgent(registry, nil, 3)

	err := a.Execute(ctx, cc, model, ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, model.calls)
}
