package llm

import (
	"context"

	"github.com/lookatitude/agentcore/internal/hookutil"
	"github.com/lookatitude/agentcore/schema"
)

// Hooks provides optional callback functions that are invoked at various
// points during LLM operations. All fields are optional; nil hooks are
// skipped. Hooks are composable via ComposeHooks.
type Hooks struct {
	// BeforeChat is called before each Chat or StreamChat call with the
	// request. Returning an error aborts the call.
	BeforeChat func(ctx context.Context, request schema.ChatRequest) error

	// AfterChat is called after Chat completes with the response and any
	// error.
	AfterChat func(ctx context.Context, resp schema.Message, err error)

	// OnStream is called for each ChatChunk received during streaming.
	OnStream func(ctx context.Context, chunk schema.ChatChunk)

	// OnToolCall is called when the model produces a tool call.
	OnToolCall func(ctx context.Context, call schema.ToolCallPart)

	// OnError is called when an error occurs. The returned error replaces the
	// original; returning nil suppresses the error. In hooks built by
	// ComposeHooks a nil return instead passes on to the next hook, and if
	// every hook returns nil the original error is kept.
	OnError func(ctx context.Context, err error) error
}

// ComposeHooks merges multiple Hooks into a single Hooks value.
// Callbacks are called in the order the hooks were provided.
// For BeforeChat and OnError, the first error returned short-circuits.
func ComposeHooks(hooks ...Hooks) Hooks {
	h := append([]Hooks{}, hooks...)
	return Hooks{
		BeforeChat: hookutil.ComposeError1(h, func(hk Hooks) func(context.Context, schema.ChatRequest) error {
			return hk.BeforeChat
		}),
		AfterChat: hookutil.ComposeVoid2(h, func(hk Hooks) func(context.Context, schema.Message, error) {
			return hk.AfterChat
		}),
		OnStream: hookutil.ComposeVoid1(h, func(hk Hooks) func(context.Context, schema.ChatChunk) {
			return hk.OnStream
		}),
		OnToolCall: hookutil.ComposeVoid1(h, func(hk Hooks) func(context.Context, schema.ToolCallPart) {
			return hk.OnToolCall
		}),
		OnError: hookutil.ComposeErrorPassthrough(h, func(hk Hooks) func(context.Context, error) error {
			return hk.OnError
		}),
	}
}
