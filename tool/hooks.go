package tool

import "context"

// Hooks are lifecycle callbacks a caller can attach around a tool's
// execution, e.g. for logging, auditing, or argument injection
// (ExecutionContext._context uses BeforeExecute for exactly that — see
// agent.Toolset).
type Hooks struct {
	// BeforeExecute runs before the tool. A non-nil error aborts the call
	// entirely; the tool's Execute is never reached.
	BeforeExecute func(ctx context.Context, name string, input map[string]any) error

	// AfterExecute runs after the tool, whatever the outcome. result is nil
	// when the call errored.
	AfterExecute func(ctx context.Context, name string, result *Result, err error)

	// OnError runs only when the tool returns an error. It may replace the
	// error (returning non-nil) or suppress it (returning nil).
	OnError func(ctx context.Context, name string, err error) error
}

// ComposeHooks chains hs into one Hooks value. BeforeExecute callbacks run
// in order and stop at the first error; AfterExecute callbacks all run;
// OnError callbacks run in order and stop at the first non-nil return,
// falling back to the original error if every hook returns nil.
func ComposeHooks(hs ...Hooks) Hooks {
	return Hooks{
		BeforeExecute: func(ctx context.Context, name string, input map[string]any) error {
			for _, h := range hs {
				if h.BeforeExecute == nil {
					continue
				}
				if err := h.BeforeExecute(ctx, name, input); err != nil {
					return err
				}
			}
			return nil
		},
		AfterExecute: func(ctx context.Context, name string, result *Result, err error) {
			for _, h := range hs {
				if h.AfterExecute != nil {
					h.AfterExecute(ctx, name, result, err)
				}
			}
		},
		OnError: func(ctx context.Context, name string, err error) error {
			for _, h := range hs {
				if h.OnError == nil {
					continue
				}
				if replaced := h.OnError(ctx, name, err); replaced != nil {
					return replaced
				}
			}
			return err
		},
	}
}

type hookedTool struct {
	Tool
	hooks Hooks
}

// WithHooks wraps base so its Execute calls hooks.BeforeExecute,
// hooks.AfterExecute, and (on failure) hooks.OnError around the underlying
// call.
func WithHooks(base Tool, hooks Hooks) Tool {
	return &hookedTool{Tool: base, hooks: hooks}
}

func (h *hookedTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	name := h.Tool.Name()

	if h.hooks.BeforeExecute != nil {
		if err := h.hooks.BeforeExecute(ctx, name, input); err != nil {
			return nil, err
		}
	}

	result, err := h.Tool.Execute(ctx, input)
	if err != nil && h.hooks.OnError != nil {
		err = h.hooks.OnError(ctx, name, err)
	}

	if h.hooks.AfterExecute != nil {
		h.hooks.AfterExecute(ctx, name, result, err)
	}

	return result, err
}
