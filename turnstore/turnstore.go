// Package turnstore implements the conversation engine (§4.6): turns, spans,
// messages, and views, plus the fork/edit splice that lets a caller revise
// history without losing it. This is the hard subsystem — role alternation,
// span sealing, and view selection all interact, so every backend must
// honor the same invariants: turn sequence numbers are contiguous per
// conversation, roles alternate along the main view, a span's messages
// never change once added, and forking never mutates the source view.
package turnstore

import (
	"context"

	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// ViewSelection pairs a turn with the span to select for it, used by
// ForkViewWithSelections to splice a revised tail onto a shared prefix.
type ViewSelection struct {
	TurnID ids.TurnID
	SpanID ids.SpanID
}

// PendingMessage is one (role, content) pair queued for EditTurn or a
// convenience turn-creation call.
type PendingMessage struct {
	Role    schema.Role
	Content []schema.StoredContent
}

// Store is the conversation engine's contract. All methods are safe for
// concurrent use; a Store serializes writers on the same conversation while
// leaving disjoint conversations free to proceed in parallel (§5).
type Store interface {
	CreateTurn(ctx context.Context, conversationID ids.ConversationID, role schema.TurnRole) (schema.Turn, error)
	GetTurn(ctx context.Context, id ids.TurnID) (schema.Turn, error)
	GetTurns(ctx context.Context, conversationID ids.ConversationID) ([]schema.Turn, error)

	CreateSpan(ctx context.Context, turnID ids.TurnID, modelID string) (schema.Span, error)
	GetSpans(ctx context.Context, turnID ids.TurnID) ([]schema.Span, error)
	GetSpan(ctx context.Context, id ids.SpanID) (schema.Span, error)

	AddMessage(ctx context.Context, spanID ids.SpanID, role schema.Role, content []schema.StoredContent) (schema.MessageWithContent, error)
	GetMessages(ctx context.Context, spanID ids.SpanID) ([]schema.MessageWithContent, error)
	GetMessage(ctx context.Context, id ids.MessageID) (schema.MessageWithContent, error)

	CreateView(ctx context.Context, conversationID ids.ConversationID, name string, isMain bool) (schema.View, error)
	GetView(ctx context.Context, id ids.ViewID) (schema.View, error)
	GetViews(ctx context.Context, conversationID ids.ConversationID) ([]schema.View, error)
	GetMainView(ctx context.Context, conversationID ids.ConversationID) (schema.View, error)

	SelectSpan(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID, spanID ids.SpanID) error
	GetSelectedSpan(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID) (ids.SpanID, bool, error)

	GetViewPath(ctx context.Context, viewID ids.ViewID) ([]schema.TurnWithContent, error)
	GetViewContextAt(ctx context.Context, viewID ids.ViewID, upToTurnID ids.TurnID) ([]schema.TurnWithContent, error)

	ForkView(ctx context.Context, viewID ids.ViewID, atTurnID ids.TurnID, name string) (schema.View, error)
	ForkViewWithSelections(ctx context.Context, viewID ids.ViewID, atTurnID ids.TurnID, name string, selections []ViewSelection) (schema.View, error)

	// EditTurn atomically creates a new span at turnID, adds each pending
	// message in order, and either forks the view (selecting the new span
	// there) or mutates viewID's own selection at turnID in place.
	EditTurn(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID, messages []PendingMessage, modelID string, createFork bool, forkName string) (schema.Span, *schema.View, error)

	// AddUserTurn and AddAssistantTurn are the supplemented convenience
	// wrappers noted in the original implementation: turn + span + single
	// message + main-view selection, as one call.
	AddUserTurn(ctx context.Context, conversationID ids.ConversationID, text string) (schema.Turn, schema.Span, schema.MessageWithContent, error)
	AddAssistantTurn(ctx context.Context, conversationID ids.ConversationID, modelID, text string) (schema.Turn, schema.Span, schema.MessageWithContent, error)
}
