package llm

import (
	"context"
	"iter"
	"log/slog"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/schema"
)

// Middleware wraps a ChatModel to add cross-cutting behaviour.
// Middlewares are composed via ApplyMiddleware and applied outside-in
// (the first middleware in the list is the outermost wrapper).
type Middleware func(ChatModel) ChatModel

// ApplyMiddleware wraps model with the given middlewares in reverse order so
// that the first middleware in the list is the outermost (first to execute).
func ApplyMiddleware(model ChatModel, mws ...Middleware) ChatModel {
	for i := len(mws) - 1; i >= 0; i-- {
		model = mws[i](model)
	}
	return model
}

// WithHooks returns middleware that invokes the given Hooks around
// Chat and StreamChat calls.
func WithHooks(hooks Hooks) Middleware {
	return func(next ChatModel) ChatModel {
		return &hookedModel{next: next, hooks: hooks}
	}
}

type hookedModel struct {
	next  ChatModel
	hooks Hooks
}

func (m *hookedModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	if m.hooks.BeforeChat != nil {
		if err := m.hooks.BeforeChat(ctx, request); err != nil {
			return schema.Message{}, err
		}
	}

	resp, err := m.next.Chat(ctx, request, opts...)

	if err != nil && m.hooks.OnError != nil {
		err = m.hooks.OnError(ctx, err)
	}

	for _, tc := range resp.Payload.ToolCalls() {
		if m.hooks.OnToolCall != nil {
			m.hooks.OnToolCall(ctx, tc)
		}
	}

	if m.hooks.AfterChat != nil {
		m.hooks.AfterChat(ctx, resp, err)
	}

	return resp, err
}

func (m *hookedModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	if m.hooks.BeforeChat != nil {
		if err := m.hooks.BeforeChat(ctx, request); err != nil {
			return func(yield func(schema.ChatChunk, error) bool) {
				yield(schema.ChatChunk{}, err)
			}
		}
	}

	inner := m.next.StreamChat(ctx, request, opts...)
	return func(yield func(schema.ChatChunk, error) bool) {
		for chunk, err := range inner {
			if err != nil {
				if m.hooks.OnError != nil {
					err = m.hooks.OnError(ctx, err)
				}
				if err != nil {
					yield(schema.ChatChunk{}, err)
				}
				return
			}

			if m.hooks.OnStream != nil {
				m.hooks.OnStream(ctx, chunk)
			}

			for _, tc := range chunk.Payload.ToolCalls() {
				if m.hooks.OnToolCall != nil {
					m.hooks.OnToolCall(ctx, tc)
				}
			}

			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (m *hookedModel) ModelID() string { return m.next.ModelID() }

// WithLogging returns middleware that logs Chat and StreamChat calls using
// the provided slog.Logger.
func WithLogging(logger *slog.Logger) Middleware {
	return func(next ChatModel) ChatModel {
		return &loggingModel{next: next, logger: logger}
	}
}

type loggingModel struct {
	next   ChatModel
	logger *slog.Logger
}

func (m *loggingModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	m.logger.InfoContext(ctx, "llm.chat.start",
		"model", m.next.ModelID(),
		"messages", len(request.Messages),
		"tools", len(request.Tools),
	)
	resp, err := m.next.Chat(ctx, request, opts...)
	if err != nil {
		m.logger.ErrorContext(ctx, "llm.chat.error",
			"model", m.next.ModelID(),
			"error", err,
		)
		return resp, err
	}
	m.logger.InfoContext(ctx, "llm.chat.done",
		"model", m.next.ModelID(),
		"parts", len(resp.Payload.Content),
	)
	return resp, nil
}

func (m *loggingModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	m.logger.InfoContext(ctx, "llm.stream.start",
		"model", m.next.ModelID(),
		"messages", len(request.Messages),
		"tools", len(request.Tools),
	)
	inner := m.next.StreamChat(ctx, request, opts...)
	return func(yield func(schema.ChatChunk, error) bool) {
		for chunk, err := range inner {
			if err != nil {
				m.logger.ErrorContext(ctx, "llm.stream.error",
					"model", m.next.ModelID(),
					"error", err,
				)
				yield(schema.ChatChunk{}, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
		m.logger.InfoContext(ctx, "llm.stream.done",
			"model", m.next.ModelID(),
		)
	}
}

func (m *loggingModel) ModelID() string { return m.next.ModelID() }

// WithFallback returns middleware that falls back to an alternative ChatModel
// when the primary model returns a retryable error (as determined by
// core.IsRetryable).
func WithFallback(fallback ChatModel) Middleware {
	return func(next ChatModel) ChatModel {
		return &fallbackModel{primary: next, fallback: fallback}
	}
}

type fallbackModel struct {
	primary  ChatModel
	fallback ChatModel
}

func (m *fallbackModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	resp, err := m.primary.Chat(ctx, request, opts...)
	if err != nil && core.IsRetryable(err) {
		return m.fallback.Chat(ctx, request, opts...)
	}
	return resp, err
}

func (m *fallbackModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	// Try the primary first; if the first chunk is an error, fall back.
	inner := m.primary.StreamChat(ctx, request, opts...)
	return func(yield func(schema.ChatChunk, error) bool) {
		first := true
		for chunk, err := range inner {
			if first && err != nil && core.IsRetryable(err) {
				for fbChunk, fbErr := range m.fallback.StreamChat(ctx, request, opts...) {
					if !yield(fbChunk, fbErr) {
						return
					}
					if fbErr != nil {
						return
					}
				}
				return
			}
			first = false
			if !yield(chunk, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

func (m *fallbackModel) ModelID() string { return m.primary.ModelID() }
