package tool

import (
	"context"
	"time"

	"github.com/lookatitude/agentcore/core"
)

// Middleware wraps a Tool to add cross-cutting behavior (timeouts, retries)
// around its Execute call while leaving Name/Description/InputSchema
// untouched.
type Middleware func(Tool) Tool

// ApplyMiddleware wraps base with mws, outermost first: the first middleware
// listed is the outermost wrapper and so observes Execute first.
func ApplyMiddleware(base Tool, mws ...Middleware) Tool {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type timeoutTool struct {
	Tool
	timeout time.Duration
}

func (t *timeoutTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Tool.Execute(ctx, input)
}

// WithTimeout bounds a tool's Execute call to d.
func WithTimeout(d time.Duration) Middleware {
	return func(next Tool) Tool {
		return &timeoutTool{Tool: next, timeout: d}
	}
}

type retryTool struct {
	Tool
	maxAttempts int
}

func (t *retryTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		result, err := t.Tool.Execute(ctx, input)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !core.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// WithRetry retries a tool call up to maxAttempts times as long as each
// failure's error code is retryable (see core.IsRetryable) and ctx has not
// been canceled between attempts.
func WithRetry(maxAttempts int) Middleware {
	return func(next Tool) Tool {
		return &retryTool{Tool: next, maxAttempts: maxAttempts}
	}
}
