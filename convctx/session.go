package convctx

import (
	"context"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/llm"
	"github.com/lookatitude/agentcore/schema"
)

// Executor runs one agent round against cc to a fixed point, committing (or
// rolling back) its own changes before returning. agent.ToolAgent satisfies
// this via agent.ToolAgent.AsExecutor, which keeps this package free of a
// dependency on the agent package (agent already depends on convctx).
type Executor interface {
	Execute(ctx context.Context, cc *Context, model llm.ChatModel) error
}

// StreamExecutor is an Executor that can also report its progress
// incrementally as core.Events instead of only a final error.
type StreamExecutor interface {
	Executor
	ExecuteStream(ctx context.Context, cc *Context, model llm.ChatModel) core.Stream[schema.Message]
}

// Session is a convenience wrapper over a Context (§4.7): Send opens a
// fresh Context, appends a user message, drives exec to completion, and
// hands back the resulting last message, so a caller that doesn't need
// manual transaction control never has to build a Context or Transaction
// itself. Grounded on the original implementation's session.rs Session,
// whose Session.send/Session.send_stream this mirrors; adapted for a
// Context backed by real storage (turnstore) rather than an in-memory
// Vec<ChatMessage>, so Send's "commit" step is exec's own Context.Commit
// rather than a second copy into an in-memory history.
type Session struct {
	deps           Deps
	conversationID ids.ConversationID
	viewID         ids.ViewID
}

// NewSession builds a Session bound to one view of one conversation.
func NewSession(deps Deps, conversationID ids.ConversationID, viewID ids.ViewID) *Session {
	return &Session{deps: deps, conversationID: conversationID, viewID: viewID}
}

// Send appends a user message carrying text to a fresh Context, runs exec
// against model to a fixed point, and returns the last message in the
// conversation once exec has committed.
func (s *Session) Send(ctx context.Context, exec Executor, model llm.ChatModel, text string) (schema.Message, error) {
	cc := New(s.deps, s.conversationID, s.viewID)
	cc.Add(schema.NewHumanMessage(text))
	if err := exec.Execute(ctx, cc, model); err != nil {
		return schema.Message{}, err
	}
	return lastMessage(ctx, cc)
}

// SendStream is Send's streaming counterpart: it drives exec's
// ExecuteStream instead of Execute, so a caller can observe core.Events as
// they are produced rather than waiting for the whole exchange to finish.
func (s *Session) SendStream(ctx context.Context, exec StreamExecutor, model llm.ChatModel, text string) core.Stream[schema.Message] {
	cc := New(s.deps, s.conversationID, s.viewID)
	cc.Add(schema.NewHumanMessage(text))
	return exec.ExecuteStream(ctx, cc, model)
}

func lastMessage(ctx context.Context, cc *Context) (schema.Message, error) {
	guard, err := cc.Messages(ctx)
	if err != nil {
		return schema.Message{}, err
	}
	msgs := guard.Messages()
	if len(msgs) == 0 {
		return schema.Message{}, nil
	}
	return msgs[len(msgs)-1], nil
}
