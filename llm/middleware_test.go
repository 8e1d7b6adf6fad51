package llm

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"testing"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/schema"
)

// stubModel is a minimal ChatModel for testing.
type stubModel struct {
	id       string
	chatFn   func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error)
	streamFn func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error]
}

func (m *stubModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, request, opts...)
	}
	return schema.Message{
		Role:     schema.RoleAI,
		Payload:  schema.TextPayload("stub response"),
		Metadata: map[string]any{"model_id": m.id},
	}, nil
}

func (m *stubModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	if m.streamFn != nil {
		return m.streamFn(ctx, request, opts...)
	}
	return func(yield func(schema.ChatChunk, error) bool) {
		yield(schema.ChatChunk{Role: schema.RoleAI, Payload: schema.TextPayload("hello")}, nil)
	}
}

func (m *stubModel) ModelID() string { return m.id }

func TestApplyMiddleware_Order(t *testing.T) {
	var order []string

	mw1 := func(next ChatModel) ChatModel {
		return &stubModel{
			id: next.ModelID(),
			chatFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
				order = append(order, "mw1-before")
				resp, err := next.Chat(ctx, request, opts...)
				order = append(order, "mw1-after")
				return resp, err
			},
		}
	}

	mw2 := func(next ChatModel) ChatModel {
		return &stubModel{
			id: next.ModelID(),
			chatFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
				order = append(order, "mw2-before")
				resp, err := next.Chat(ctx, request, opts...)
				order = append(order, "mw2-after")
				return resp, err
			},
		}
	}

	base := &stubModel{id: "base"}
	wrapped := ApplyMiddleware(base, mw1, mw2)

	_, _ = wrapped.Chat(context.Background(), schema.ChatRequest{})

	// mw1 is outermost (first), mw2 is inner.
	want := []string{"mw1-before", "mw2-before", "mw2-after", "mw1-after"}
	if len(order) != len(want) {
		t.Fatalf("got %d calls, want %d: %v", len(order), len(want), order)
	}
	for i, v := range order {
		if v != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, v, want[i])
		}
	}
}

func TestApplyMiddleware_NoMiddleware(t *testing.T) {
	base := &stubModel{id: "base"}
	result := ApplyMiddleware(base)
	if result.ModelID() != "base" {
		t.Errorf("expected base model, got %q", result.ModelID())
	}
}

func TestWithLogging(t *testing.T) {
	// Use a discard handler so logs don't pollute test output.
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	base := &stubModel{id: "test-model"}

	wrapped := ApplyMiddleware(base, WithLogging(logger))

	request := schema.ChatRequest{Messages: []schema.Message{schema.NewHumanMessage("hi")}}

	resp, err := wrapped.Chat(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Payload.Text() != "stub response" {
		t.Errorf("unexpected response text: %q", resp.Payload.Text())
	}

	var chunks []string
	for chunk, err := range wrapped.StreamChat(context.Background(), request) {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		chunks = append(chunks, chunk.Payload.Text())
	}
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestWithLogging_Error(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	base := &stubModel{
		id: "err-model",
		chatFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
			return schema.Message{}, errors.New("model error")
		},
	}

	wrapped := ApplyMiddleware(base, WithLogging(logger))
	_, err := wrapped.Chat(context.Background(), schema.ChatRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestWithFallback_PrimarySucceeds(t *testing.T) {
	primary := &stubModel{id: "primary"}
	fallback := &stubModel{id: "fallback"}

	wrapped := ApplyMiddleware(primary, WithFallback(fallback))

	resp, err := wrapped.Chat(context.Background(), schema.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Metadata["model_id"] != "primary" {
		t.Errorf("expected primary model response, got %v", resp.Metadata["model_id"])
	}
}

func TestWithFallback_FallsBackOnRetryable(t *testing.T) {
	retryableErr := core.NewError("test", core.ErrConflict, "down", nil)
	primary := &stubModel{
		id: "primary",
		chatFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
			return schema.Message{}, retryableErr
		},
	}
	fallback := &stubModel{id: "fallback"}

	wrapped := ApplyMiddleware(primary, WithFallback(fallback))

	resp, err := wrapped.Chat(context.Background(), schema.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Metadata["model_id"] != "fallback" {
		t.Errorf("expected fallback model response, got %v", resp.Metadata["model_id"])
	}
}

func TestWithFallback_NoFallbackOnNonRetryable(t *testing.T) {
	nonRetryableErr := core.NewError("test", core.ErrModel, "auth failed", nil)
	primary := &stubModel{
		id: "primary",
		chatFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
			return schema.Message{}, nonRetryableErr
		},
	}
	fallback := &stubModel{id: "fallback"}

	wrapped := ApplyMiddleware(primary, WithFallback(fallback))

	_, err := wrapped.Chat(context.Background(), schema.ChatRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, nonRetryableErr) {
		t.Errorf("expected non-retryable error to pass through, got: %v", err)
	}
}

func TestWithFallback_StreamFallback(t *testing.T) {
	retryableErr := core.NewError("test", core.ErrConflict, "rate limited", nil)
	primary := &stubModel{
		id: "primary",
		streamFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
			return func(yield func(schema.ChatChunk, error) bool) {
				yield(schema.ChatChunk{}, retryableErr)
			}
		},
	}
	fallback := &stubModel{
		id: "fallback",
		streamFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
			return func(yield func(schema.ChatChunk, error) bool) {
				yield(schema.ChatChunk{Payload: schema.TextPayload("fallback-chunk")}, nil)
			}
		},
	}

	wrapped := ApplyMiddleware(primary, WithFallback(fallback))

	var texts []string
	for chunk, err := range wrapped.StreamChat(context.Background(), schema.ChatRequest{}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		texts = append(texts, chunk.Payload.Text())
	}
	if len(texts) != 1 || texts[0] != "fallback-chunk" {
		t.Errorf("expected fallback chunks, got: %v", texts)
	}
}

func TestWithHooks_BeforeChatAborts(t *testing.T) {
	hooks := Hooks{
		BeforeChat: func(ctx context.Context, request schema.ChatRequest) error {
			return errors.New("blocked by hook")
		},
	}
	base := &stubModel{id: "base"}
	wrapped := ApplyMiddleware(base, WithHooks(hooks))

	_, err := wrapped.Chat(context.Background(), schema.ChatRequest{})
	if err == nil {
		t.Fatal("expected error from BeforeChat hook")
	}
	if err.Error() != "blocked by hook" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWithHooks_OnToolCallTriggered(t *testing.T) {
	var calls []string
	hooks := Hooks{
		OnToolCall: func(ctx context.Context, call schema.ToolCallPart) {
			calls = append(calls, call.Name)
		},
	}
	base := &stubModel{
		id: "base",
		chatFn: func(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
			return schema.Message{
				Role: schema.RoleAI,
				Payload: schema.ChatPayload{Content: []schema.ContentPart{
					schema.ToolCallPart{ID: "1", Name: "search"},
					schema.ToolCallPart{ID: "2", Name: "calculate"},
				}},
			}, nil
		},
	}
	wrapped := ApplyMiddleware(base, WithHooks(hooks))

	_, _ = wrapped.Chat(context.Background(), schema.ChatRequest{})
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0] != "search" || calls[1] != "calculate" {
		t.Errorf("unexpected calls: %v", calls)
	}
}

func TestWithHooks_StreamBeforeChatAborts(t *testing.T) {
	hooks := Hooks{
		BeforeChat: func(ctx context.Context, request schema.ChatRequest) error {
			return errors.New("stream blocked")
		},
	}
	base := &stubModel{id: "base"}
	wrapped := ApplyMiddleware(base, WithHooks(hooks))

	var gotErr error
	for _, err := range wrapped.StreamChat(context.Background(), schema.ChatRequest{}) {
		if err != nil {
			gotErr = err
			break
		}
	}
	if gotErr == nil {
		t.Fatal("expected error from stream BeforeChat hook")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
