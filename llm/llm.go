// Package llm provides the LLM abstraction layer for the runtime. It defines
// the ChatModel interface that all providers implement, a provider registry
// for dynamic instantiation, composable middleware, lifecycle hooks,
// structured output parsing, context window management, tokenization, rate
// limiting, and a router for multi-backend routing.
//
// Providers register themselves via init() so that importing a provider
// package is sufficient to make it available through the registry:
//
//	import _ "github.com/lookatitude/agentcore/llm/providers/openai"
//
//	model, err := llm.New("openai", cfg)
//
// Middleware wraps ChatModel to add cross-cutting concerns:
//
//	model = llm.ApplyMiddleware(model, llm.WithLogging(logger), llm.WithFallback(backup))
//
// Streaming uses iter.Seq2 (Go 1.23+):
//
//	for chunk, err := range model.StreamChat(ctx, request) {
//	    if err != nil { break }
//	    fmt.Print(chunk.Payload.Text())
//	}
package llm

import (
	"context"
	"iter"

	"github.com/lookatitude/agentcore/schema"
)

// ChatModel is the primary interface for interacting with language models.
// All LLM providers implement this interface, and the Router, middleware,
// and structured output layer all compose through it. Mirrors the original
// implementation's ChatModel trait (noema-core/llm): a request carries both
// the message history and the tools on offer, so binding tools to a model
// ahead of time is unnecessary.
type ChatModel interface {
	// Chat sends request and returns the model's complete reply.
	Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error)

	// StreamChat sends request and returns an iterator of response chunks.
	// Consumers should range over the returned sequence. A non-nil error
	// terminates the stream.
	StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error]

	// ModelID returns the identifier of the underlying model (e.g. "gpt-4o").
	ModelID() string
}
