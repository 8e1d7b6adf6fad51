// Package sqlite implements turnstore.Store over database/sql using
// modernc.org/sqlite, porting the schema and invariants of
// original_source's storage/implementations/sqlite/turn.rs: turns, spans,
// messages, message_content, views, and view_selections, with the same
// CHECK constraints, foreign keys, and ON DELETE CASCADE.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
	"github.com/lookatitude/agentcore/turnstore"
)

// TextStore is the slice of textstore.Store that message materialization
// needs.
type TextStore interface {
	Store(ctx context.Context, block schema.ContentBlock) (ids.ContentBlockID, bool, error)
	GetText(ctx context.Context, id ids.ContentBlockID) (string, error)
}

// Store is a SQLite-backed turnstore.Store.
type Store struct {
	db   *sql.DB
	text TextStore
}

// New wraps an existing *sql.DB (shared with textstore, typically) and a
// TextStore for text-content materialization. Callers must call
// EnsureSchema once.
func New(db *sql.DB, text TextStore) *Store {
	return &Store{db: db, text: text}
}

var _ turnstore.Store = (*Store)(nil)

// EnsureSchema creates the turns/spans/messages/message_content/views/
// view_selections tables if they do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT CHECK(role IN ('user', 'assistant')) NOT NULL,
			sequence_number INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (conversation_id, sequence_number)
		);
		CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, sequence_number);

		CREATE TABLE IF NOT EXISTS spans (
			id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
			model_id TEXT,
			sealed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_spans_turn ON spans(turn_id);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			span_id TEXT NOT NULL REFERENCES spans(id) ON DELETE CASCADE,
			sequence_number INTEGER NOT NULL,
			role TEXT CHECK(role IN ('user', 'assistant', 'system', 'tool')) NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (span_id, sequence_number)
		);
		CREATE INDEX IF NOT EXISTS idx_messages_span ON messages(span_id, sequence_number);

		CREATE TABLE IF NOT EXISTS message_content (
			id TEXT PRIMARY KEY,
			message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			sequence_number INTEGER NOT NULL,
			content_type TEXT CHECK(content_type IN ('text', 'asset_ref', 'document_ref', 'tool_call', 'tool_result')) NOT NULL,
			content_block_id TEXT,
			asset_id TEXT,
			mime_type TEXT,
			filename TEXT,
			document_id TEXT,
			title TEXT,
			tool_data TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_message_content_message ON message_content(message_id, sequence_number);

		CREATE TABLE IF NOT EXISTS views (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			name TEXT,
			is_main INTEGER NOT NULL DEFAULT 0,
			forked_from_view_id TEXT REFERENCES views(id),
			forked_at_turn_id TEXT REFERENCES turns(id),
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_views_conversation ON views(conversation_id);

		CREATE TABLE IF NOT EXISTS view_selections (
			view_id TEXT NOT NULL REFERENCES views(id) ON DELETE CASCADE,
			turn_id TEXT NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
			span_id TEXT NOT NULL REFERENCES spans(id) ON DELETE CASCADE,
			PRIMARY KEY (view_id, turn_id)
		);
		CREATE INDEX IF NOT EXISTS idx_view_selections_span ON view_selections(span_id);
	`)
	if err != nil {
		return core.NewError("turnstore/sqlite.EnsureSchema", core.ErrIO, "create schema", err)
	}
	return nil
}

// --- Turns ---

func (s *Store) CreateTurn(ctx context.Context, conversationID ids.ConversationID, role schema.TurnRole) (schema.Turn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.Turn{}, core.NewError("turnstore/sqlite.CreateTurn", core.ErrIO, "begin tx", err)
	}
	defer tx.Rollback()

	var lastSeq sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT MAX(sequence_number) FROM turns WHERE conversation_id = ?`, string(conversationID)).Scan(&lastSeq)
	if err != nil {
		return schema.Turn{}, core.NewError("turnstore/sqlite.CreateTurn", core.ErrIO, "query max seq", err)
	}

	seq := 0
	if lastSeq.Valid {
		seq = int(lastSeq.Int64) + 1
		if lastRole, ok, err := s.lastSelectedRole(ctx, tx, conversationID); err != nil {
			return schema.Turn{}, err
		} else if ok && lastRole == role {
			return schema.Turn{}, core.NewError("turnstore/sqlite.CreateTurn", core.ErrInvalidRole,
				"turn role must alternate; previous selected role was "+string(lastRole), nil)
		}
	}

	t := schema.Turn{ID: ids.TurnID(ids.New()), ConversationID: conversationID, Role: role, SequenceNumber: seq, CreatedAt: nowMillis()}
	_, err = tx.ExecContext(ctx, `INSERT INTO turns (id, conversation_id, role, sequence_number, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(t.ID), string(t.ConversationID), string(t.Role), t.SequenceNumber, t.CreatedAt)
	if err != nil {
		return schema.Turn{}, core.NewError("turnstore/sqlite.CreateTurn", core.ErrConflict, "insert turn (sequence collision?)", err)
	}
	if err := tx.Commit(); err != nil {
		return schema.Turn{}, core.NewError("turnstore/sqlite.CreateTurn", core.ErrIO, "commit", err)
	}
	return t, nil
}

func (s *Store) lastSelectedRole(ctx context.Context, tx *sql.Tx, conversationID ids.ConversationID) (schema.TurnRole, bool, error) {
	var mainViewID string
	err := tx.QueryRowContext(ctx, `SELECT id FROM views WHERE conversation_id = ? AND is_main = 1`, string(conversationID)).Scan(&mainViewID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.NewError("turnstore/sqlite.lastSelectedRole", core.ErrIO, "query main view", err)
	}
	var role string
	err = tx.QueryRowContext(ctx, `
		SELECT t.role FROM view_selections vs
		JOIN turns t ON t.id = vs.turn_id
		WHERE vs.view_id = ?
		ORDER BY t.sequence_number DESC LIMIT 1`, mainViewID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.NewError("turnstore/sqlite.lastSelectedRole", core.ErrIO, "query last selected", err)
	}
	return schema.TurnRole(role), true, nil
}

func (s *Store) GetTurn(ctx context.Context, id ids.TurnID) (schema.Turn, error) {
	var t schema.Turn
	err := s.db.QueryRowContext(ctx, `SELECT id, conversation_id, role, sequence_number, created_at FROM turns WHERE id = ?`, string(id)).
		Scan(&t.ID, &t.ConversationID, &t.Role, &t.SequenceNumber, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return schema.Turn{}, core.NewError("turnstore/sqlite.GetTurn", core.ErrNotFound, "turn "+string(id), err)
	}
	if err != nil {
		return schema.Turn{}, core.NewError("turnstore/sqlite.GetTurn", core.ErrIO, "query", err)
	}
	return t, nil
}

func (s *Store) GetTurns(ctx context.Context, conversationID ids.ConversationID) ([]schema.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, role, sequence_number, created_at FROM turns WHERE conversation_id = ? ORDER BY sequence_number`, string(conversationID))
	if err != nil {
		return nil, core.NewError("turnstore/sqlite.GetTurns", core.ErrIO, "query", err)
	}
	defer rows.Close()
	var out []schema.Turn
	for rows.Next() {
		var t schema.Turn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &t.SequenceNumber, &t.CreatedAt); err != nil {
			return nil, core.NewError("turnstore/sqlite.GetTurns", core.ErrIO, "scan", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Spans ---

func (s *Store) CreateSpan(ctx context.Context, turnID ids.TurnID, modelID string) (schema.Span, error) {
	if _, err := s.GetTurn(ctx, turnID); err != nil {
		return schema.Span{}, err
	}
	sp := schema.Span{ID: ids.SpanID(ids.New()), TurnID: turnID, ModelID: modelID, CreatedAt: nowMillis()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO spans (id, turn_id, model_id, created_at) VALUES (?, ?, ?, ?)`,
		string(sp.ID), string(sp.TurnID), nullString(sp.ModelID), sp.CreatedAt)
	if err != nil {
		return schema.Span{}, core.NewError("turnstore/sqlite.CreateSpan", core.ErrIO, "insert", err)
	}
	return sp, nil
}

func (s *Store) GetSpans(ctx context.Context, turnID ids.TurnID) ([]schema.Span, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, turn_id, model_id, created_at FROM spans WHERE turn_id = ?`, string(turnID))
	if err != nil {
		return nil, core.NewError("turnstore/sqlite.GetSpans", core.ErrIO, "query", err)
	}
	defer rows.Close()
	var out []schema.Span
	for rows.Next() {
		var sp schema.Span
		var modelID sql.NullString
		if err := rows.Scan(&sp.ID, &sp.TurnID, &modelID, &sp.CreatedAt); err != nil {
			return nil, core.NewError("turnstore/sqlite.GetSpans", core.ErrIO, "scan", err)
		}
		sp.ModelID = modelID.String
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) GetSpan(ctx context.Context, id ids.SpanID) (schema.Span, error) {
	var sp schema.Span
	var modelID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, turn_id, model_id, created_at FROM spans WHERE id = ?`, string(id)).
		Scan(&sp.ID, &sp.TurnID, &modelID, &sp.CreatedAt)
	if err == sql.ErrNoRows {
		return schema.Span{}, core.NewError("turnstore/sqlite.GetSpan", core.ErrNotFound, "span "+string(id), err)
	}
	if err != nil {
		return schema.Span{}, core.NewError("turnstore/sqlite.GetSpan", core.ErrIO, "query", err)
	}
	sp.ModelID = modelID.String
	return sp, nil
}

// --- Messages ---

func (s *Store) AddMessage(ctx context.Context, spanID ids.SpanID, role schema.Role, content []schema.StoredContent) (schema.MessageWithContent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrIO, "begin tx", err)
	}
	defer tx.Rollback()

	var sealed int
	err = tx.QueryRowContext(ctx, `SELECT sealed FROM spans WHERE id = ?`, string(spanID)).Scan(&sealed)
	if err == sql.ErrNoRows {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrNotFound, "span "+string(spanID), err)
	}
	if err != nil {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrIO, "query sealed", err)
	}
	if sealed != 0 {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrSpanSealed, "span "+string(spanID)+" is sealed", nil)
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE span_id = ?`, string(spanID)).Scan(&seq); err != nil {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrIO, "count messages", err)
	}

	msg := schema.StoredMessage{ID: ids.MessageID(ids.New()), SpanID: spanID, SequenceNumber: seq, Role: role, CreatedAt: nowMillis()}
	_, err = tx.ExecContext(ctx, `INSERT INTO messages (id, span_id, sequence_number, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.SpanID), msg.SequenceNumber, string(msg.Role), msg.CreatedAt)
	if err != nil {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrIO, "insert message", err)
	}

	resolved := make([]schema.MessageContent, len(content))
	for i, item := range content {
		mc, err := s.materialize(ctx, item, i, msg.ID)
		if err != nil {
			return schema.MessageWithContent{}, err
		}
		if err := insertMessageContent(ctx, tx, mc); err != nil {
			return schema.MessageWithContent{}, err
		}
		resolved[i] = mc
	}

	if err := tx.Commit(); err != nil {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.AddMessage", core.ErrIO, "commit", err)
	}
	return schema.MessageWithContent{StoredMessage: msg, Content: resolved}, nil
}

func (s *Store) materialize(ctx context.Context, item schema.StoredContent, seq int, messageID ids.MessageID) (schema.MessageContent, error) {
	mc := schema.MessageContent{ID: ids.MessageContentID(ids.New()), MessageID: messageID, SequenceNumber: seq, Kind: item.Kind}
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
		return schema.MessageContent{}, core.NewError("turnstore/sqlite.materialize", core.ErrInvalidRole, "unknown content kind", nil)
	}
	return mc, nil
}

func insertMessageContent(ctx context.Context, tx *sql.Tx, mc schema.MessageContent) error {
	var toolData sql.NullString
	switch mc.Kind {
	case schema.StoredToolCall:
		b, err := json.Marshal(mc.ToolCall)
		if err != nil {
			return core.NewError("turnstore/sqlite.insertMessageContent", core.ErrIO, "marshal tool call", err)
		}
		toolData = sql.NullString{String: string(b), Valid: true}
	case schema.StoredToolResult:
		b, err := json.Marshal(mc.ToolResult)
		if err != nil {
			return core.NewError("turnstore/sqlite.insertMessageContent", core.ErrIO, "marshal tool result", err)
		}
		toolData = sql.NullString{String: string(b), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO message_content (id, message_id, sequence_number, content_type, content_block_id, asset_id, mime_type, filename, document_id, title, tool_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(mc.ID), string(mc.MessageID), mc.SequenceNumber, string(mc.Kind),
		nullString(string(mc.ContentBlockID)), nullString(string(mc.AssetID)), nullString(mc.MimeType), nullString(mc.Filename),
		nullString(string(mc.DocumentID)), nullString(mc.Title), toolData)
	if err != nil {
		return core.NewError("turnstore/sqlite.insertMessageContent", core.ErrIO, "insert", err)
	}
	return nil
}

func (s *Store) GetMessages(ctx context.Context, spanID ids.SpanID) ([]schema.MessageWithContent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, span_id, sequence_number, role, created_at FROM messages WHERE span_id = ? ORDER BY sequence_number`, string(spanID))
	if err != nil {
		return nil, core.NewError("turnstore/sqlite.GetMessages", core.ErrIO, "query", err)
	}
	defer rows.Close()
	var msgs []schema.StoredMessage
	for rows.Next() {
		var m schema.StoredMessage
		if err := rows.Scan(&m.ID, &m.SpanID, &m.SequenceNumber, &m.Role, &m.CreatedAt); err != nil {
			return nil, core.NewError("turnstore/sqlite.GetMessages", core.ErrIO, "scan", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewError("turnstore/sqlite.GetMessages", core.ErrIO, "rows", err)
	}
	out := make([]schema.MessageWithContent, len(msgs))
	for i, m := range msgs {
		content, err := s.loadContent(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out[i] = schema.MessageWithContent{StoredMessage: m, Content: content}
	}
	return out, nil
}

func (s *Store) loadContent(ctx context.Context, messageID ids.MessageID) ([]schema.MessageContent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, sequence_number, content_type, content_block_id, asset_id, mime_type, filename, document_id, title, tool_data
		FROM message_content WHERE message_id = ? ORDER BY sequence_number`, string(messageID))
	if err != nil {
		return nil, core.NewError("turnstore/sqlite.loadContent", core.ErrIO, "query", err)
	}
	defer rows.Close()
	var out []schema.MessageContent
	for rows.Next() {
		var mc schema.MessageContent
		var blockID, assetID, mimeType, filename, docID, title, toolData sql.NullString
		if err := rows.Scan(&mc.ID, &mc.MessageID, &mc.SequenceNumber, &mc.Kind, &blockID, &assetID, &mimeType, &filename, &docID, &title, &toolData); err != nil {
			return nil, core.NewError("turnstore/sqlite.loadContent", core.ErrIO, "scan", err)
		}
		mc.ContentBlockID = ids.ContentBlockID(blockID.String)
		mc.AssetID = ids.AssetID(assetID.String)
		mc.MimeType = mimeType.String
		mc.Filename = filename.String
		mc.DocumentID = ids.DocumentID(docID.String)
		mc.Title = title.String
		switch mc.Kind {
		case schema.StoredText:
			text, err := s.text.GetText(ctx, mc.ContentBlockID)
			if err != nil {
				return nil, err
			}
			mc.Text = text
		case schema.StoredToolCall:
			if toolData.Valid {
				if err := json.Unmarshal([]byte(toolData.String), &mc.ToolCall); err != nil {
					return nil, core.NewError("turnstore/sqlite.loadContent", core.ErrIO, "unmarshal tool call", err)
				}
			}
		case schema.StoredToolResult:
			if toolData.Valid {
				if err := json.Unmarshal([]byte(toolData.String), &mc.ToolResult); err != nil {
					return nil, core.NewError("turnstore/sqlite.loadContent", core.ErrIO, "unmarshal tool result", err)
				}
			}
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, id ids.MessageID) (schema.MessageWithContent, error) {
	var m schema.StoredMessage
	err := s.db.QueryRowContext(ctx, `SELECT id, span_id, sequence_number, role, created_at FROM messages WHERE id = ?`, string(id)).
		Scan(&m.ID, &m.SpanID, &m.SequenceNumber, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.GetMessage", core.ErrNotFound, "message "+string(id), err)
	}
	if err != nil {
		return schema.MessageWithContent{}, core.NewError("turnstore/sqlite.GetMessage", core.ErrIO, "query", err)
	}
	content, err := s.loadContent(ctx, m.ID)
	if err != nil {
		return schema.MessageWithContent{}, err
	}
	return schema.MessageWithContent{StoredMessage: m, Content: content}, nil
}

// --- Views ---

func (s *Store) CreateView(ctx context.Context, conversationID ids.ConversationID, name string, isMain bool) (schema.View, error) {
	v := schema.View{ID: ids.ViewID(ids.New()), ConversationID: conversationID, Name: name, IsMain: isMain, CreatedAt: nowMillis()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO views (id, conversation_id, name, is_main, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(v.ID), string(v.ConversationID), nullString(v.Name), boolToInt(v.IsMain), v.CreatedAt)
	if err != nil {
		return schema.View{}, core.NewError("turnstore/sqlite.CreateView", core.ErrIO, "insert", err)
	}
	return v, nil
}

func (s *Store) GetView(ctx context.Context, id ids.ViewID) (schema.View, error) {
	v, ok, err := s.getView(ctx, s.db, id)
	if err != nil {
		return schema.View{}, err
	}
	if !ok {
		return schema.View{}, core.NewError("turnstore/sqlite.GetView", core.ErrNotFound, "view "+string(id), nil)
	}
	return v, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getView(ctx context.Context, q querier, id ids.ViewID) (schema.View, bool, error) {
	var v schema.View
	var name, forkedFrom, forkedAt sql.NullString
	var isMain int
	err := q.QueryRowContext(ctx, `SELECT id, conversation_id, name, is_main, forked_from_view_id, forked_at_turn_id, created_at FROM views WHERE id = ?`, string(id)).
		Scan(&v.ID, &v.ConversationID, &name, &isMain, &forkedFrom, &forkedAt, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return schema.View{}, false, nil
	}
	if err != nil {
		return schema.View{}, false, core.NewError("turnstore/sqlite.getView", core.ErrIO, "query", err)
	}
	v.Name = name.String
	v.IsMain = isMain != 0
	v.ForkedFromView = ids.ViewID(forkedFrom.String)
	v.ForkedAtTurn = ids.TurnID(forkedAt.String)
	return v, true, nil
}

func (s *Store) GetViews(ctx context.Context, conversationID ids.ConversationID) ([]schema.View, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM views WHERE conversation_id = ?`, string(conversationID))
	if err != nil {
		return nil, core.NewError("turnstore/sqlite.GetViews", core.ErrIO, "query", err)
	}
	defer rows.Close()
	var viewIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.NewError("turnstore/sqlite.GetViews", core.ErrIO, "scan", err)
		}
		viewIDs = append(viewIDs, id)
	}
	var out []schema.View
	for _, id := range viewIDs {
		v, err := s.GetView(ctx, ids.ViewID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) GetMainView(ctx context.Context, conversationID ids.ConversationID) (schema.View, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM views WHERE conversation_id = ? AND is_main = 1`, string(conversationID)).Scan(&id)
	if err == sql.ErrNoRows {
		return schema.View{}, core.NewError("turnstore/sqlite.GetMainView", core.ErrNotFound, "conversation "+string(conversationID)+" has no main view", err)
	}
	if err != nil {
		return schema.View{}, core.NewError("turnstore/sqlite.GetMainView", core.ErrIO, "query", err)
	}
	return s.GetView(ctx, ids.ViewID(id))
}

// SelectSpan makes spanID the chosen span for turnID in viewID. Selecting a
// span hands it out to any reader of that view, so it is sealed here rather
// than when its messages are written — a span being assembled (e.g. a tool
// loop appending several messages before anyone commits) must stay mutable
// until it is actually selected.
func (s *Store) SelectSpan(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID, spanID ids.SpanID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewError("turnstore/sqlite.SelectSpan", core.ErrIO, "begin tx", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO view_selections (view_id, turn_id, span_id) VALUES (?, ?, ?)
		ON CONFLICT (view_id, turn_id) DO UPDATE SET span_id = excluded.span_id`,
		string(viewID), string(turnID), string(spanID))
	if err != nil {
		return core.NewError("turnstore/sqlite.SelectSpan", core.ErrIO, "upsert selection", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE spans SET sealed = 1 WHERE id = ?`, string(spanID)); err != nil {
		return core.NewError("turnstore/sqlite.SelectSpan", core.ErrIO, "seal span", err)
	}
	if err := tx.Commit(); err != nil {
		return core.NewError("turnstore/sqlite.SelectSpan", core.ErrIO, "commit", err)
	}
	return nil
}

func (s *Store) GetSelectedSpan(ctx context.Context, viewID ids.ViewID, turnID ids.TurnID) (ids.SpanID, bool, error) {
	var spanID string
	err := s.db.QueryRowContext(ctx, `SELECT span_id FROM view_selections WHERE view_id = ? AND turn_id = ?`, string(viewID), string(turnID)).Scan(&spanID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.NewError("turnstore/sqlite.GetSelectedSpan", core.ErrIO, "query", err)
	}
	return ids.SpanID(spanID), true, nil
}

func (s *Store) GetViewPath(ctx context.Context, viewID ids.ViewID) ([]schema.TurnWithContent, error) {
	return s.viewPathThrough(ctx, viewID, "")
}

func (s *Store) GetViewContextAt(ctx context.Context, viewID ids.ViewID, upToTurnID ids.TurnID) ([]schema.TurnWithContent, error) {
	return s.viewPathThrough(ctx, viewID, upToTurnID)
}

func (s *Store) viewPathThrough(ctx context.Context, viewID ids.ViewID, stopBefore ids.TurnID) ([]schema.TurnWithContent, error) {
	v, err := s.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	turns, err := s.GetTurns(ctx, v.ConversationID)
	if err != nil {
		return nil, err
	}
	var out []schema.TurnWithContent
	for _, t := range turns {
		if stopBefore != "" && t.ID == stopBefore {
			break
		}
		twc := schema.TurnWithContent{Turn: t}
		if spanID, ok, err := s.GetSelectedSpan(ctx, viewID, t.ID); err != nil {
			return nil, err
		} else if ok {
			span, err := s.GetSpan(ctx, spanID)
			if err != nil {
				return nil, err
			}
			msgs, err := s.GetMessages(ctx, spanID)
			if err != nil {
				return nil, err
			}
			swm := schema.SpanWithMessages{Span: span, Messages: msgs}
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
	src, err := s.GetView(ctx, viewID)
	if err != nil {
		return schema.View{}, err
	}
	atTurn, err := s.GetTurn(ctx, atTurnID)
	if err != nil {
		return schema.View{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "begin tx", err)
	}
	defer tx.Rollback()

	newView := schema.View{ID: ids.ViewID(ids.New()), ConversationID: src.ConversationID, Name: name, ForkedFromView: src.ID, ForkedAtTurn: atTurnID, CreatedAt: nowMillis()}
	_, err = tx.ExecContext(ctx, `INSERT INTO views (id, conversation_id, name, is_main, forked_from_view_id, forked_at_turn_id, created_at) VALUES (?, ?, ?, 0, ?, ?, ?)`,
		string(newView.ID), string(newView.ConversationID), nullString(newView.Name), string(src.ID), string(atTurnID), newView.CreatedAt)
	if err != nil {
		return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "insert view", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT vs.turn_id, vs.span_id FROM view_selections vs
		JOIN turns t ON t.id = vs.turn_id
		WHERE vs.view_id = ? AND t.sequence_number < ?`, string(viewID), atTurn.SequenceNumber)
	if err != nil {
		return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "query prefix selections", err)
	}
	type pair struct{ turnID, spanID string }
	var prefix []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.turnID, &p.spanID); err != nil {
			rows.Close()
			return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "scan", err)
		}
		prefix = append(prefix, p)
	}
	rows.Close()

	for _, p := range prefix {
		if _, err := tx.ExecContext(ctx, `INSERT INTO view_selections (view_id, turn_id, span_id) VALUES (?, ?, ?)`, string(newView.ID), p.turnID, p.spanID); err != nil {
			return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "copy selection", err)
		}
	}
	for _, sel := range selections {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO view_selections (view_id, turn_id, span_id) VALUES (?, ?, ?)
			ON CONFLICT (view_id, turn_id) DO UPDATE SET span_id = excluded.span_id`,
			string(newView.ID), string(sel.TurnID), string(sel.SpanID))
		if err != nil {
			return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "apply selection", err)
		}
		// these selections hand a span out to the new view for the first
		// time (the copied prefix above was already sealed earlier), so
		// seal them now.
		if _, err := tx.ExecContext(ctx, `UPDATE spans SET sealed = 1 WHERE id = ?`, string(sel.SpanID)); err != nil {
			return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "seal span", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return schema.View{}, core.NewError("turnstore/sqlite.ForkViewWithSelections", core.ErrIO, "commit", err)
	}
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

func nowMillis() int64 { return time.Now().UnixMilli() }

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
