// Package convctx implements ConversationContext and Transaction (§4.7): the
// boundary between an Agent and the storage layer. An agent never sees a
// turnstore.Store directly; it sees a Context, which lazily resolves a
// view's committed history into provider-facing messages and buffers new
// ones until Commit flushes them back as turns/spans/messages. Grounded on
// the original implementation's context.rs (the resolve-then-cache read
// path) and transaction.rs (the pending-buffer/commit/rollback write path),
// adapted to read from and write to the richer Go storage layer instead of
// a flat in-memory message list.
package convctx

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/lookatitude/agentcore/assetstore"
	"github.com/lookatitude/agentcore/blobstore"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/o11y"
	"github.com/lookatitude/agentcore/schema"
	"github.com/lookatitude/agentcore/turnstore"
)

// MessagesGuard is a read-only view over a Context's resolved message
// sequence: a snapshot, not a live reference, so holding one never blocks a
// concurrent Add or Commit.
type MessagesGuard struct {
	messages []schema.Message
}

// Messages returns the guarded sequence.
func (g MessagesGuard) Messages() []schema.Message { return g.messages }

// Len reports how many messages are guarded.
func (g MessagesGuard) Len() int { return len(g.messages) }

// Context is a ConversationContext: lazy read of a view's resolved history
// plus a pending write buffer, committed atomically.
type Context struct {
	mu sync.Mutex

	turns  turnstore.Store
	assets assetstore.Store
	blobs  *blobstore.Store
	log    *o11y.Logger

	conversationID ids.ConversationID
	viewID         ids.ViewID

	resolved   []schema.Message
	haveCache  bool
	pending    []schema.Message
	committed  bool
	rolledBack bool
}

// Deps bundles the storage dependencies a Context resolves against.
type Deps struct {
	Turns  turnstore.Store
	Assets assetstore.Store
	Blobs  *blobstore.Store
	Log    *o11y.Logger
}

// New builds a Context bound to one view of one conversation.
func New(deps Deps, conversationID ids.ConversationID, viewID ids.ViewID) *Context {
	return &Context{
		turns: deps.Turns, assets: deps.Assets, blobs: deps.Blobs, log: deps.Log,
		conversationID: conversationID, viewID: viewID,
	}
}

// Messages resolves (on first call) and returns the current snapshot:
// committed prefix from storage, followed by any pending, uncommitted
// messages added since. Subsequent calls reuse the cached committed prefix
// until Commit invalidates it.
func (c *Context) Messages(ctx context.Context) (MessagesGuard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.haveCache {
		resolved, err := c.resolveLocked(ctx)
		if err != nil {
			return MessagesGuard{}, err
		}
		c.resolved = resolved
		c.haveCache = true
	}
	out := make([]schema.Message, 0, len(c.resolved)+len(c.pending))
	out = append(out, c.resolved...)
	out = append(out, c.pending...)
	return MessagesGuard{messages: out}, nil
}

func (c *Context) resolveLocked(ctx context.Context) ([]schema.Message, error) {
	path, err := c.turns.GetViewPath(ctx, c.viewID)
	if err != nil {
		return nil, err
	}
	var out []schema.Message
	for _, twc := range path {
		if twc.Span == nil {
			continue // sparse view: no selection at this turn, skip it
		}
		for _, mwc := range twc.Span.Messages {
			msg, err := c.resolveMessage(ctx, mwc)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
	}
	return out, nil
}

func (c *Context) resolveMessage(ctx context.Context, mwc schema.MessageWithContent) (schema.Message, error) {
	parts := make([]schema.ContentPart, 0, len(mwc.Content))
	for _, item := range mwc.Content {
		part, err := c.resolveContent(ctx, item)
		if err != nil {
			return schema.Message{}, err
		}
		parts = append(parts, part)
	}
	return schema.Message{Role: mwc.Role, Payload: schema.ChatPayload{Content: parts}}, nil
}

// resolveContent turns one persisted content item into its inline
// provider-facing form: text passes through as-is, asset refs are inlined
// as base64 payloads, document refs are left alone for docresolve to expand
// later, and tool calls/results pass through unchanged.
func (c *Context) resolveContent(ctx context.Context, item schema.MessageContent) (schema.ContentPart, error) {
	switch item.Kind {
	case schema.StoredText:
		return schema.TextPart{Text: item.Text}, nil
	case schema.StoredAssetRef:
		asset, err := c.assets.Get(ctx, item.AssetID)
		if err != nil {
			return nil, err
		}
		data, err := c.blobs.Get(ctx, asset.BlobHash)
		if err != nil {
			return nil, err
		}
		return schema.ImagePart{DataBase64: base64.StdEncoding.EncodeToString(data), MimeType: asset.MimeType}, nil
	case schema.StoredDocumentRef:
		return schema.DocumentRefPart{ID: string(item.DocumentID), Title: item.Title}, nil
	case schema.StoredToolCall:
		return item.ToolCall, nil
	case schema.StoredToolResult:
		return item.ToolResult, nil
	default:
		return nil, core.NewError("convctx.resolveContent", core.ErrInvalidRole, "unknown content kind", nil)
	}
}

// Len reports the total message count: resolved (if cached, else 0) plus pending.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resolved) + len(c.pending)
}

// IsEmpty reports whether Len() == 0.
func (c *Context) IsEmpty() bool { return c.Len() == 0 }

// Add appends message to the pending buffer. It does not touch storage.
func (c *Context) Add(message schema.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, message)
}

// Pending returns the buffered, uncommitted messages.
func (c *Context) Pending() []schema.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schema.Message, len(c.pending))
	copy(out, c.pending)
	return out
}

// Commit flushes pending messages to storage as new turns/spans/messages,
// then invalidates the resolution cache so the next Messages call re-reads
// the extended history.
//
// Pending messages are grouped into turns before flushing: a tool-calling
// round (one or more model responses interleaved with synthetic tool-result
// messages, as agent.ToolAgent.Execute accumulates via repeated Add calls
// before a single Commit) belongs to one assistant turn with one span
// holding every message in the round, not one turn per message. Only a
// genuine new user message — never a synthetic tool-result, even though it
// carries schema.RoleHuman — starts a fresh turn.
func (c *Context) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.committed || c.rolledBack {
		return core.NewError("convctx.Commit", core.ErrConflict, "context already finalized", nil)
	}
	for _, group := range groupIntoTurns(c.pending) {
		if err := c.flushTurnLocked(ctx, group); err != nil {
			return err
		}
	}
	c.pending = nil
	c.haveCache = false
	c.committed = true
	return nil
}

// pendingTurn is one contiguous run of pending messages destined for a
// single turn/span.
type pendingTurn struct {
	role     schema.TurnRole
	messages []schema.Message
}

// groupIntoTurns splits a pending buffer into turns. A message continues
// the open assistant turn, rather than starting a new one, when it is
// either an assistant-role message or a synthetic tool-result continuation
// of that round; a genuine user message always starts a new turn.
func groupIntoTurns(pending []schema.Message) []pendingTurn {
	var turns []pendingTurn
	for _, msg := range pending {
		switch {
		case isToolResultMessage(msg):
			if n := len(turns); n > 0 && turns[n-1].role == schema.TurnAssistant {
				turns[n-1].messages = append(turns[n-1].messages, msg)
				continue
			}
			turns = append(turns, pendingTurn{role: schema.TurnAssistant, messages: []schema.Message{msg}})
		case msg.Role == schema.RoleAI:
			if n := len(turns); n > 0 && turns[n-1].role == schema.TurnAssistant {
				turns[n-1].messages = append(turns[n-1].messages, msg)
				continue
			}
			turns = append(turns, pendingTurn{role: schema.TurnAssistant, messages: []schema.Message{msg}})
		default:
			turns = append(turns, pendingTurn{role: schema.TurnUser, messages: []schema.Message{msg}})
		}
	}
	return turns
}

// isToolResultMessage reports whether msg is a synthetic tool-result
// message (schema.NewToolMessage): every content part a ToolResultPart. Such
// messages carry schema.RoleHuman but continue the assistant turn that
// issued the tool call, per §9.
func isToolResultMessage(msg schema.Message) bool {
	if msg.Role != schema.RoleHuman || len(msg.Payload.Content) == 0 {
		return false
	}
	for _, part := range msg.Payload.Content {
		if _, ok := part.(schema.ToolResultPart); !ok {
			return false
		}
	}
	return true
}

func (c *Context) flushTurnLocked(ctx context.Context, group pendingTurn) error {
	turn, err := c.turns.CreateTurn(ctx, c.conversationID, group.role)
	if err != nil {
		return err
	}
	span, err := c.turns.CreateSpan(ctx, turn.ID, "")
	if err != nil {
		return err
	}
	for _, msg := range group.messages {
		content := make([]schema.StoredContent, 0, len(msg.Payload.Content))
		for _, part := range msg.Payload.Content {
			content = append(content, toStoredContent(part))
		}
		if _, err := c.turns.AddMessage(ctx, span.ID, msg.Role, content); err != nil {
			return err
		}
	}
	return c.turns.SelectSpan(ctx, c.viewID, turn.ID, span.ID)
}

func toStoredContent(part schema.ContentPart) schema.StoredContent {
	switch p := part.(type) {
	case schema.TextPart:
		return schema.NewStoredText(p.Text)
	case schema.ToolCallPart:
		return schema.NewStoredToolCall(p)
	case schema.ToolResultPart:
		return schema.NewStoredToolResult(p)
	case schema.DocumentRefPart:
		return schema.NewStoredDocumentRef(ids.DocumentID(p.ID), p.Title)
	default:
		// Images/audio have no write path here; each is stored as an empty
		// text item.
		return schema.NewStoredText("")
	}
}

// Rollback discards all pending messages without persisting them. A
// Context whose pending buffer is non-empty when it is simply abandoned
// (neither committed nor rolled back) is a caller bug: the Transaction
// wrapper (transaction.go) logs a warning in that case rather than silently losing
// a partial tool-call loop.
func (c *Context) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.rolledBack = true
}
