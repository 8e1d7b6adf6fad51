// Package inmemory is the reference turnstore.Store implementation: a
// single mutex guarding plain maps. Used for tests and for deployments that
// don't need persistence (ephemeral sessions, embedding in another process).
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
	"github.com/lookatitude/agentcore/turnstore"
)

// TextStore is the slice of textstore.Store that message materialization
// needs: dedup-on-write and lookup-by-id for text content.
type TextStore interface {
	Store(ctx context.Context, block schema.ContentBlock) (ids.ContentBlockID, bool, error)
	GetText(ctx context.Context, id ids.ContentBlockID) (string, error)
}

type spanRecord struct {
	span   schema.Span
	sealed bool
	msgIDs []ids.MessageID
}

// Store is a mutex-guarded, map-backed turnstore.Store.
type Store struct {
	mu sync.Mutex

	text TextStore

	turns          map[ids.TurnID]schema.Turn
	turnsByConv    map[ids.ConversationID][]ids.TurnID // in sequence order
	spans          map[ids.SpanID]*spanRecord
	spansByTurn    map[ids.TurnID][]ids.SpanID
	messages       map[ids.MessageID]schema.MessageWithContent
	views          map[ids.ViewID]schema.View
	viewsByConv    map[ids.ConversationID][]ids.ViewID
	selections     map[ids.ViewID]map[ids.TurnID]ids.SpanID
	mainViewByConv map[ids.ConversationID]ids.ViewID
}

// New creates an empty Store backed by text for text-content materialization.
func New(text TextStore) *Store {
	return &Store{
		text:           text,
		turns:          make(map[ids.TurnID]schema.Turn),
		turnsByConv:    make(map[ids.ConversationID][]ids.TurnID),
		spans:          make(map[ids.SpanID]*spanRecord),
		spansByTurn:    make(map[ids.TurnID][]ids.SpanID),
		messages:       make(map[ids.MessageID]schema.MessageWithContent),
		views:          make(map[ids.ViewID]schema.View),
		viewsByConv:    make(map[ids.ConversationID][]ids.ViewID),
		selections:     make(map[ids.ViewID]map[ids.TurnID]ids.SpanID),
		mainViewByConv: make(map[ids.ConversationID]ids.ViewID),
	}
}

var _ turnstore.Store = (*Store)(nil)

func now() int64 { return time.Now().UnixMilli() }

// --- Turns ---

func (s *Store) CreateTurn(ctx context.Context, conversationID ids.ConversationID, role schema.TurnRole) (schema.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.turnsByConv[conversationID]
	seq := 0
	if len(existing) > 0 {
		last := s.turns[existing[len(existing)-1]]
		seq = last.SequenceNumber + 1
		if mainViewID, ok := s.mainViewByConv[conversationID]; ok {
			if lastRole, ok := s.lastSelectedRoleLocked(mainViewID, existing); ok && lastRole == role {
				return schema.Turn{}, core.NewError("turnstore.CreateTurn", core.ErrInvalidRole,
					"turn role must alternate; previous selected role was "+string(lastRole), nil)
			}
		}
	}

	t := schema.Turn{
		ID:             ids.TurnID(ids.New()),
		ConversationID: conversationID,
		Role:           role,
		SequenceNumber: seq,
		CreatedAt:      now(),
	}
	s.turns[t.ID] = t
	s.turnsByConv[conversationID] = append(s.turnsByConv[conversationID], t.ID)
	return t, nil
}

// lastSelectedRoleLocked walks turnIDs from the end looking for the most
// recent one selected in the main view, returning its role.
func (s *Store) lastSelectedRoleLocked(mainViewID ids.ViewID, turnIDs []ids.TurnID) (schema.TurnRole, bool) {
	sel := s.selections[mainViewID]
	for i := len(turnIDs) - 1; i >= 0; i-- {
		if _, ok := sel[turnIDs[i]]; ok {
			return s.turns[turnIDs[i]].Role, true
		}
	}
	return "", false
}

func (s *Store) GetTurn(ctx context.Context, id ids.TurnID) (schema.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[id]
	if !ok {
		return schema.Turn{}, core.NewError("turnstore.GetTurn", core.ErrNotFound, "turn "+string(id), nil)
	}
	return t, nil
}

func (s *Store) GetTurns(ctx context.Context, conversationID ids.ConversationID) ([]schema.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Turn
	for _, id := range s.turnsByConv[conversationID] {
		out = append(out, s.turns[id])
	}
	return out, nil
}

// --- Spans ---

func (s *Store) CreateSpan(ctx context.Context, turnID ids.TurnID, modelID string) (schema.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.turns[turnID]; !ok {
		return schema.Span{}, core.NewError("turnstore.CreateSpan", core.ErrNotFound, "turn "+string(turnID), nil)
	}
	sp := schema.Span{ID: ids.SpanID(ids.New()), TurnID: turnID, ModelID: modelID, CreatedAt: now()}
	s.spans[sp.ID] = &spanRecord{span: sp}
	s.spansByTurn[turnID] = append(s.spansByTurn[turnID], sp.ID)
	return sp, nil
}

func (s *Store) GetSpans(ctx context.Context, turnID ids.TurnID) ([]schema.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Span
	for _, id := range s.spansByTurn[turnID] {
		out = append(out, s.spans[id].span)
	}
	return out, nil
}

func (s *Store) GetSpan(ctx context.Context, id ids.SpanID) (schema.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.spans[id]
	if !ok {
		return schema.Span{}, core.NewError("turnstore.GetSpan", core.ErrNotFound, "span "+string(id), nil)
	}
	return rec.span, nil
}

// --- Messages ---

func (s *Store) AddMessage(ctx context.Context, spanID ids.SpanID, role schema.Role, content []schema.StoredContent) (schema.MessageWithContent, error) {
	s.mu.Lock()
	rec, ok := s.spans[spanID]
	if !ok {
		s.mu.Unlock()
		return schema.MessageWithContent{}, core.NewError("turnstore.AddMessage", core.ErrNotFound, "span "+string(spanID), nil)
	}
	if rec.sealed {
		s.mu.Unlock()
		return schema.MessageWithContent{}, core.NewError("turnstore.AddMessage", core.ErrSpanSealed, "span "+string(spanID)+" is sealed", nil)
	}
	s.mu.Unlock()

	resolved := make([]schema.MessageContent, len(content))
	for i, item := range content {
		mc, err := s.materialize(ctx, item, i)
		if err != nil {
			return schema.MessageWithContent{}, err
		}
		resolved[i] = mc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok = s.spans[spanID]
	if !ok {
		return schema.MessageWithContent{}, core.NewError("turnstore.AddMessage", core.ErrNotFound, "span "+string(spanID), nil)
	}
	if rec.sealed {
		return schema.MessageWithContent{}, core.NewError("turnstore.AddMessage", core.ErrSpanSealed, "span "+string(spanID)+" is sealed", nil)
	}

	msg := schema.StoredMessage{
		ID:             ids.MessageID(ids.New()),
		SpanID:         spanID,
		SequenceNumber: len(rec.msgIDs),
		Role:           role,
		CreatedAt:      now(),
	}
	for i := range resolved {
		resolved[i].MessageID = msg.ID
	}
	mwc := schema.MessageWithContent{StoredMessage: msg, Content: resolved}
	s.messages[msg.ID] = mwc
	rec.msgIDs = append(rec.msgIDs, msg.ID)
	return mwc, nil
}

func (s *Store) materialize(ctx context.Context, item schema.StoredContent, seq int) (schema.MessageContent, error) {
	mc := schema.MessageContent{SequenceNumber: seq, Kind: item.Kind, ID: ids.MessageContentID(ids.New())}
	switch item.Kind {
	case schema.StoredText:
		blockID, _, err := s.text.Store(ctx, schema.ContentBlock{Text: item.Text, Type: schema.BlockPlain})
		if err != nil {
			return schema.MessageContent{}, err
		}
		mc.ContentBlockID = blockID
		mc.Text = item.Text
	case schema.StoredAssetRef:
		mc.AssetID, mc.MimeType, mc.Filename = item.AssetID, item.MimeType, item.Filename
	case schema.StoredDocumentRef:
		mc.DocumentID, mc.Title = item.DocumentID, item.Title
	case schema.StoredToolCall:
		mc.ToolCall = item.ToolCall
	case schema.StoredToolResult:
		mc.ToolResult = item.ToolResult
	default:
		return schema.MessageContent{}, core.NewError("turnstore.materialize", core.ErrInvalidRole, "unknown content kind", nil)
	}
	return mc, nil
}

func (s *Store) GetMessages(ctx context.Context, spanID ids.SpanID) ([]schema.MessageWithContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.spans[spanID]
	if !ok {
		return nil, core.NewError("turnstore.GetMessages", core.ErrNotFound, "span "+string(spanID), nil)
	}
	var out []schema.MessageWithContent
	for _, id := range rec.msgIDs {
		out = append(out, s.messages[id])
	}
	return out, nil
}

func (s *Store) GetMessage(ctx context.Context, id ids.MessageID) (schema.MessageWithContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return schema.MessageWithContent{}, core.NewError("turnstore.GetMessage", core.ErrNotFound, "message "+string(id), nil)
	}
	return m, nil
}

// --- Views ---

func (s *Store) CreateView(ctx context.Context, conversationID ids.ConversationID, name string, isMain bool) (schema.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := schema.View{
		ID: ids.ViewID(ids.New()), ConversationID: conversationID, Name: name,
		IsMain: isMain, CreatedAt: now(),
	}
	s.views[v.ID] = v
	s.viewsByConv[conversationID] = append(s.viewsByConv[conversationID], v.ID)
	s.selections[v.ID] = make(map[ids.TurnID]ids.SpanID)
	if isMain {
		s.mainViewByConv[conversationID] = v.ID
	}
	return v, nil
}

func (s *Store) GetView(ctx context.Context, id ids.ViewID) (schema.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	if !ok {
		return schema.View{}, core.NewError("turnstore.GetView", core.ErrNotFound, "view "+string(id), nil)
	}
	return v, nil
}

func (s *Store) GetViews(ctx context.Context, conversationID ids.ConversationID) ([]schema.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.View
	for _, id := range s.viewsByConv[conversationID] {
		out = append(out, s.views[id])
	}
	return out, nil
}

func (s *Store) GetMainView(ctx context.Context, conversationID ids.ConversationID) (schema.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.mainViewByConv[conversationID]
	if !ok {
		return schema.View{}, core.NewError("turnstore.GetMainView", core.ErrNotFound, "conversation "+string(conversationID)+" has no main view", nil)
	}
	return s.views[id], nil
}

// SelectSpan makes spanID the chosen span for turnID in viewID. Selecting a
// span hands it out to any reader of that view, so it is sealed here rather
// than when its messages are written — a span being assembled (e.g. a tool
// loop appending several messages before anyone commits) must stay mutable
// until it is actually selected.
func (s *Store) SelectSpan(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID, spanID ids.SpanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[viewID]; !ok {
		return core.NewError("turnstore.SelectSpan", core.ErrNotFound, "view "+string(viewID), nil)
	}
	rec, ok := s.spans[spanID]
	if !ok {
		return core.NewError("turnstore.SelectSpan", core.ErrNotFound, "span "+string(spanID), nil)
	}
	s.selections[viewID][turnID] = spanID
	rec.sealed = true
	return nil
}

func (s *Store) GetSelectedSpan(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID) (ids.SpanID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[viewID]
	if !ok {
		return "", false, core.NewError("turnstore.GetSelectedSpan", core.ErrNotFound, "view "+string(viewID), nil)
	}
	spanID, ok := sel[turnID]
	return spanID, ok, nil
}

func (s *Store) spanWithMessagesLocked(spanID ids.SpanID) schema.SpanWithMessages {
	rec := s.spans[spanID]
	var msgs []schema.MessageWithContent
	for _, id := range rec.msgIDs {
		msgs = append(msgs, s.messages[id])
	}
	return schema.SpanWithMessages{Span: rec.span, Messages: msgs}
}

func (s *Store) GetViewPath(ctx context.Context, viewID ids.ViewID) ([]schema.TurnWithContent, error) {
	return s.viewPathThrough(ctx, viewID, "")
}

func (s *Store) GetViewContextAt(ctx context.Context, viewID ids.ViewID, upToTurnID ids.TurnID) ([]schema.TurnWithContent, error) {
	return s.viewPathThrough(ctx, viewID, upToTurnID)
}

// viewPathThrough builds the turn sequence for a view. If stopBefore is
// non-empty, the returned slice stops strictly before that turn.
func (s *Store) viewPathThrough(ctx context.Context, viewID ids.ViewID, stopBefore ids.TurnID) ([]schema.TurnWithContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[viewID]
	if !ok {
		return nil, core.NewError("turnstore.GetViewPath", core.ErrNotFound, "view "+string(viewID), nil)
	}
	sel := s.selections[viewID]

	var out []schema.TurnWithContent
	for _, turnID := range s.turnsByConv[v.ConversationID] {
		if stopBefore != "" && turnID == stopBefore {
			break
		}
		twc := schema.TurnWithContent{Turn: s.turns[turnID]}
		if spanID, ok := sel[turnID]; ok {
			swm := s.spanWithMessagesLocked(spanID)
			twc.Span = &swm
		}
		out = append(out, twc)
	}
	return out, nil
}

// --- Forking and editing ---

func (s *Store) ForkView(ctx context.Context, viewID ids.ViewID, atTurnID ids.TurnID, name string) (schema.View, error) {
	return s.ForkViewWithSelections(ctx, viewID, atTurnID, name, nil)
}

func (s *Store) ForkViewWithSelections(ctx context.Context, viewID ids.ViewID, atTurnID ids.TurnID, name string, selections []turnstore.ViewSelection) (schema.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.views[viewID]
	if !ok {
		return schema.View{}, core.NewError("turnstore.ForkViewWithSelections", core.ErrNotFound, "view "+string(viewID), nil)
	}
	atTurn, ok := s.turns[atTurnID]
	if !ok {
		return schema.View{}, core.NewError("turnstore.ForkViewWithSelections", core.ErrNotFound, "turn "+string(atTurnID), nil)
	}

	newView := schema.View{
		ID: ids.ViewID(ids.New()), ConversationID: src.ConversationID, Name: name,
		ForkedFromView: src.ID, ForkedAtTurn: atTurnID, CreatedAt: now(),
	}
	s.views[newView.ID] = newView
	s.viewsByConv[src.ConversationID] = append(s.viewsByConv[src.ConversationID], newView.ID)

	newSel := make(map[ids.TurnID]ids.SpanID)
	srcSel := s.selections[viewID]
	for _, turnID := range s.turnsByConv[src.ConversationID] {
		t := s.turns[turnID]
		if t.SequenceNumber >= atTurn.SequenceNumber {
			break
		}
		if spanID, ok := srcSel[turnID]; ok {
			newSel[turnID] = spanID
		}
	}
	for _, sel := range selections {
		newSel[sel.TurnID] = sel.SpanID
		// these selections hand a span out to the new view for the first
		// time (the copied prefix above was already sealed earlier), so
		// seal them now.
		if rec, ok := s.spans[sel.SpanID]; ok {
			rec.sealed = true
		}
	}
	s.selections[newView.ID] = newSel
	return newView, nil
}

func (s *Store) EditTurn(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID, messages []turnstore.PendingMessage, modelID string, createFork bool, forkName string) (schema.Span, *schema.View, error) {
	if _, err := s.GetView(ctx, viewID); err != nil {
		return schema.Span{}, nil, err
	}
	if _, err := s.GetTurn(ctx, turnID); err != nil {
		return schema.Span{}, nil, err
	}

	newSpan, err := s.CreateSpan(ctx, turnID, modelID)
	if err != nil {
		return schema.Span{}, nil, err
	}
	for _, pm := range messages {
		if _, err := s.AddMessage(ctx, newSpan.ID, pm.Role, pm.Content); err != nil {
			return schema.Span{}, nil, err
		}
	}

	if createFork {
		newView, err := s.ForkViewWithSelections(ctx, viewID, turnID, forkName,
			[]turnstore.ViewSelection{{TurnID: turnID, SpanID: newSpan.ID}})
		if err != nil {
			return schema.Span{}, nil, err
		}
		return newSpan, &newView, nil
	}
	if err := s.SelectSpan(ctx, viewID, turnID, newSpan.ID); err != nil {
		return schema.Span{}, nil, err
	}
	return newSpan, nil, nil
}

// --- Convenience ---

func (s *Store) AddUserTurn(ctx context.Context, conversationID ids.ConversationID, text string) (schema.Turn, schema.Span, schema.MessageWithContent, error) {
	return s.addTurn(ctx, conversationID, schema.TurnUser, "", []schema.StoredContent{schema.NewStoredText(text)})
}

func (s *Store) AddAssistantTurn(ctx context.Context, conversationID ids.ConversationID, modelID, text string) (schema.Turn, schema.Span, schema.MessageWithContent, error) {
	return s.addTurn(ctx, conversationID, schema.TurnAssistant, modelID, []schema.StoredContent{schema.NewStoredText(text)})
}

func (s *Store) addTurn(ctx context.Context, conversationID ids.ConversationID, role schema.TurnRole, modelID string, content []schema.StoredContent) (schema.Turn, schema.Span, schema.MessageWithContent, error) {
	turn, err := s.CreateTurn(ctx, conversationID, role)
	if err != nil {
		return schema.Turn{}, schema.Span{}, schema.MessageWithContent{}, err
	}
	span, err := s.CreateSpan(ctx, turn.ID, modelID)
	if err != nil {
		return schema.Turn{}, schema.Span{}, schema.MessageWithContent{}, err
	}
	msgRole := schema.RoleHuman
	if role == schema.TurnAssistant {
		msgRole = schema.RoleAI
	}
	mwc, err := s.AddMessage(ctx, span.ID, msgRole, content)
	if err != nil {
		return schema.Turn{}, schema.Span{}, schema.MessageWithContent{}, err
	}
	mainView, err := s.GetMainView(ctx, conversationID)
	if err != nil {
		return schema.Turn{}, schema.Span{}, schema.MessageWithContent{}, err
	}
	if err := s.SelectSpan(ctx, mainView.ID, turn.ID, span.ID); err != nil {
		return schema.Turn{}, schema.Span{}, schema.MessageWithContent{}, err
	}
	return turn, span, mwc, nil
}
