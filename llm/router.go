package llm

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/schema"
)

// ModelSelector selects which ChatModel to use for a given request.
type ModelSelector interface {
	// Select picks a model from the available models for the given messages.
	Select(ctx context.Context, models []ChatModel, msgs []schema.Message) (ChatModel, error)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithStrategy sets the routing strategy. Defaults to RoundRobin if unset.
func WithStrategy(s ModelSelector) RouterOption {
	return func(r *Router) {
		r.strategy = s
	}
}

// WithModels sets the pool of models the router can select from.
func WithModels(models ...ChatModel) RouterOption {
	return func(r *Router) {
		r.models = models
	}
}

// Router implements ChatModel by delegating to one of several backend models
// chosen by a pluggable ModelSelector. This allows transparent load balancing,
// failover, and cost optimization across multiple LLM providers.
type Router struct {
	models   []ChatModel
	strategy ModelSelector
	tools    []schema.ToolDefinition
}

// NewRouter creates a Router with the given options. If no strategy is set,
// RoundRobin is used by default.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	if r.strategy == nil {
		r.strategy = &RoundRobin{}
	}
	return r
}

func (r *Router) selectModel(ctx context.Context, msgs []schema.Message) (ChatModel, error) {
	if len(r.models) == 0 {
		return nil, core.NewError("llm.router", core.ErrModel, "no models configured", nil)
	}
	return r.strategy.Select(ctx, r.models, msgs)
}

// withRouterTools returns request with r.tools appended, so a Router can add
// tools to every request it routes regardless of what the caller supplied.
func (r *Router) withRouterTools(request schema.ChatRequest) schema.ChatRequest {
	if len(r.tools) == 0 {
		return request
	}
	merged := request
	merged.Tools = append(append([]schema.ToolDefinition{}, request.Tools...), r.tools...)
	return merged
}

// Chat delegates to the model selected by the strategy.
func (r *Router) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	model, err := r.selectModel(ctx, request.Messages)
	if err != nil {
		return schema.Message{}, err
	}
	return model.Chat(ctx, r.withRouterTools(request), opts...)
}

// StreamChat delegates to the model selected by the strategy.
func (r *Router) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	model, err := r.selectModel(ctx, request.Messages)
	if err != nil {
		return func(yield func(schema.ChatChunk, error) bool) {
			yield(schema.ChatChunk{}, err)
		}
	}
	return model.StreamChat(ctx, r.withRouterTools(request), opts...)
}

// ModelID returns "router" since the actual model varies per request.
func (r *Router) ModelID() string { return "router" }

// RoundRobin selects models in round-robin order.
type RoundRobin struct {
	counter atomic.Uint64
}

// Select picks the next model in round-robin order.
func (rr *RoundRobin) Select(_ context.Context, models []ChatModel, _ []schema.Message) (ChatModel, error) {
	if len(models) == 0 {
		return nil, errors.New("llm: round-robin: no models")
	}
	idx := rr.counter.Add(1) - 1
	return models[idx%uint64(len(models))], nil
}

// FailoverChain is a routing strategy that always selects the first model.
// It makes no calls and does no failover itself; failover across models is
// done by FailoverRouter.
type FailoverChain struct{}

// Select returns the first model without calling it. Actual failover happens
// in Chat/StreamChat via the FailoverRouter wrapper.
func (fc *FailoverChain) Select(_ context.Context, models []ChatModel, _ []schema.Message) (ChatModel, error) {
	if len(models) == 0 {
		return nil, errors.New("llm: failover: no models")
	}
	// Return the first model; failover is handled by FailoverRouter.
	return models[0], nil
}

// FailoverRouter wraps multiple models and tries each in order, falling back
// on retryable errors. Unlike the basic Router+FailoverChain (which only
// selects a model), FailoverRouter actually retries across models.
type FailoverRouter struct {
	models []ChatModel
	tools  []schema.ToolDefinition
}

// NewFailoverRouter creates a FailoverRouter from the given models.
func NewFailoverRouter(models ...ChatModel) *FailoverRouter {
	return &FailoverRouter{models: models}
}

func (fr *FailoverRouter) withTools(request schema.ChatRequest) schema.ChatRequest {
	if len(fr.tools) == 0 {
		return request
	}
	merged := request
	merged.Tools = append(append([]schema.ToolDefinition{}, request.Tools...), fr.tools...)
	return merged
}

// Chat tries each model in order until one succeeds or a non-retryable
// error occurs.
func (fr *FailoverRouter) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	request = fr.withTools(request)
	var lastErr error
	for _, model := range fr.models {
		resp, err := model.Chat(ctx, request, opts...)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !core.IsRetryable(err) {
			return schema.Message{}, err
		}
	}
	return schema.Message{}, lastErr
}

// StreamChat tries each model in order. If the first chunk from a model is an
// error and it is retryable, the next model is tried.
func (fr *FailoverRouter) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	request = fr.withTools(request)
	return func(yield func(schema.ChatChunk, error) bool) {
		for _, model := range fr.models {
			inner := model.StreamChat(ctx, request, opts...)
			failed := false
			first := true
			for chunk, err := range inner {
				if first && err != nil && core.IsRetryable(err) {
					failed = true
					break
				}
				first = false
				if !yield(chunk, err) {
					return
				}
				if err != nil {
					return
				}
			}
			if !failed {
				return
			}
		}
		yield(schema.ChatChunk{}, core.NewError("llm.failover", core.ErrModel, "all models failed", nil))
	}
}

// ModelID returns "failover-router".
func (fr *FailoverRouter) ModelID() string { return "failover-router" }
