package agent

import (
	"context"

	"github.com/lookatitude/agentcore/convctx"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/llm"
	"github.com/lookatitude/agentcore/schema"
)

// RunnableAgent adapts a ToolAgent into core.Runnable, the framework-wide
// execution interface every composable component implements. Wrapping the
// tool-calling loop this way lets an agent take part in a core.Pipe or
// core.Parallel composition (e.g. a retrieval Runnable feeding its output
// in as the agent's next input) without the agent package needing to know
// about those combinators itself.
type RunnableAgent struct {
	Agent   *ToolAgent
	CC      *convctx.Context
	Model   llm.ChatModel
	ExecCtx ExecutionContext
}

// WithExecutionContext overrides the ExecutionContext injected into tool
// calls for a single Invoke/Stream call, without needing a new RunnableAgent.
func WithExecutionContext(ec ExecutionContext) core.Option {
	return core.OptionFunc(func(target any) {
		if r, ok := target.(*RunnableAgent); ok {
			r.ExecCtx = ec
		}
	})
}

// Invoke appends input to the pending conversation (if it is a
// schema.Message; any other input type is ignored, matching Runnable's
// "accept whatever makes sense for this component" contract), runs the
// tool loop to a fixed point, and returns the last message in the
// conversation.
func (r RunnableAgent) Invoke(ctx context.Context, input any, opts ...core.Option) (any, error) {
	core.ApplyOptions(&r, opts...)
	if msg, ok := input.(schema.Message); ok {
		r.CC.Add(msg)
	}
	if err := r.Agent.Execute(ctx, r.CC, r.Model, r.ExecCtx); err != nil {
		return nil, err
	}
	guard, err := r.CC.Messages(ctx)
	if err != nil {
		return nil, err
	}
	msgs := guard.Messages()
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[len(msgs)-1], nil
}

// Stream runs the loop to completion via Invoke and yields its result as a
// single core.EventDone event: ToolAgent's own loop has no intermediate
// streaming today, so this satisfies core.Runnable without pretending to
// offer incremental output.
func (r RunnableAgent) Stream(ctx context.Context, input any, opts ...core.Option) core.Stream[any] {
	return func(yield func(core.Event[any], error) bool) {
		result, err := r.Invoke(ctx, input, opts...)
		if err != nil {
			yield(core.Event[any]{Type: core.EventError, Err: err}, err)
			return
		}
		yield(core.Event[any]{Type: core.EventDone, Payload: result}, nil)
	}
}

var _ core.Runnable = RunnableAgent{}

// executorAdapter satisfies convctx.Executor/convctx.StreamExecutor so a
// ToolAgent can be driven from a convctx.Session (see AsExecutor), without
// convctx depending on this package.
type executorAdapter struct {
	agent   *ToolAgent
	execCtx ExecutionContext
}

// AsExecutor adapts a into the convctx.Executor/StreamExecutor pair a
// Session needs, binding the per-call ExecutionContext once instead of
// threading it through every Session.Send/SendStream call.
func (a *ToolAgent) AsExecutor(execCtx ExecutionContext) convctx.StreamExecutor {
	return executorAdapter{agent: a, execCtx: execCtx}
}

func (e executorAdapter) Execute(ctx context.Context, cc *convctx.Context, model llm.ChatModel) error {
	return e.agent.Execute(ctx, cc, model, e.execCtx)
}

// ExecuteStream runs the loop to completion (ToolAgent has no incremental
// output of its own) and yields the result as a single core.EventDone,
// mirroring RunnableAgent.Stream.
func (e executorAdapter) ExecuteStream(ctx context.Context, cc *convctx.Context, model llm.ChatModel) core.Stream[schema.Message] {
	return func(yield func(core.Event[schema.Message], error) bool) {
		if err := e.agent.Execute(ctx, cc, model, e.execCtx); err != nil {
			yield(core.Event[schema.Message]{Type: core.EventError, Err: err}, err)
			return
		}
		guard, err := cc.Messages(ctx)
		if err != nil {
			yield(core.Event[schema.Message]{Type: core.EventError, Err: err}, err)
			return
		}
		msgs := guard.Messages()
		if len(msgs) == 0 {
			return
		}
		yield(core.Event[schema.Message]{Type: core.EventDone, Payload: msgs[len(msgs)-1]}, nil)
	}
}

var _ convctx.StreamExecutor = executorAdapter{}
