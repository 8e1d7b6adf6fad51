// Package mongo implements documentstore.Store atop MongoDB, via
// go.mongodb.org/mongo-driver. Documents, tabs, and revisions are stored as
// separate collections rather than nested sub-documents: tabs can grow
// without bound (every edit appends a revision) and Mongo's 16MB document
// limit makes unbounded embedding unsafe for long-lived documents.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/documentstore"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// collection is the slice of *mongo.Collection that Store needs, narrowed
// so tests can substitute an in-memory fake instead of a live server.
type collection interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error)
}

// Store is a MongoDB-backed documentstore.Store.
type Store struct {
	documents collection
	tabs      collection
	revisions collection

	// rawTabs/rawRevisions retain the concrete collections solely for
	// index creation, which isn't part of the narrowed collection
	// interface above.
	rawTabs      *mongo.Collection
	rawRevisions *mongo.Collection
}

// New wraps a database, using the conventional collection names "documents",
// "tabs", and "revisions".
func New(db *mongo.Database) *Store {
	tabs, revisions := db.Collection("tabs"), db.Collection("revisions")
	return &Store{
		documents:    db.Collection("documents"),
		tabs:         tabs,
		revisions:    revisions,
		rawTabs:      tabs,
		rawRevisions: revisions,
	}
}

var _ documentstore.Store = (*Store)(nil)

// EnsureIndexes creates the indexes this store's queries rely on. Call once
// at startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.rawTabs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "position", Value: 1}},
	})
	if err != nil {
		return core.NewError("documentstore/mongo.EnsureIndexes", core.ErrIO, "tabs index", err)
	}
	_, err = s.rawRevisions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tab_id", Value: 1}, {Key: "revision_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return core.NewError("documentstore/mongo.EnsureIndexes", core.ErrIO, "revisions index", err)
	}
	return nil
}

type documentDoc struct {
	ID        string `bson:"_id"`
	UserID    string `bson:"user_id"`
	Title     string `bson:"title"`
	Source    string `bson:"source"`
	SourceID  string `bson:"source_id,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func toDocumentDoc(d schema.Document) documentDoc {
	return documentDoc{
		ID: string(d.ID), UserID: string(d.UserID), Title: d.Title,
		Source: string(d.Source), SourceID: d.SourceID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func (d documentDoc) toSchema() schema.Document {
	return schema.Document{
		ID: ids.DocumentID(d.ID), UserID: ids.UserID(d.UserID), Title: d.Title,
		Source: schema.DocumentSource(d.Source), SourceID: d.SourceID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func (s *Store) CreateDocument(ctx context.Context, d schema.Document) (schema.Document, error) {
	if d.ID == "" {
		d.ID = ids.DocumentID(ids.New())
	}
	if _, err := s.documents.InsertOne(ctx, toDocumentDoc(d)); err != nil {
		return schema.Document{}, core.NewError("documentstore/mongo.CreateDocument", core.ErrIO, "insert", err)
	}
	return d, nil
}

func (s *Store) GetDocument(ctx context.Context, id ids.DocumentID) (schema.Document, error) {
	var doc documentDoc
	err := s.documents.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return schema.Document{}, core.NewError("documentstore/mongo.GetDocument", core.ErrNotFound, "document "+string(id), err)
	}
	if err != nil {
		return schema.Document{}, core.NewError("documentstore/mongo.GetDocument", core.ErrIO, "find", err)
	}
	return doc.toSchema(), nil
}

func (s *Store) DeleteDocument(ctx context.Context, id ids.DocumentID) error {
	cur, err := s.tabs.Find(ctx, bson.M{"document_id": string(id)})
	if err != nil {
		return core.NewError("documentstore/mongo.DeleteDocument", core.ErrIO, "find tabs", err)
	}
	var tabIDs []string
	for cur.Next(ctx) {
		var t tabDoc
		if err := cur.Decode(&t); err != nil {
			return core.NewError("documentstore/mongo.DeleteDocument", core.ErrIO, "decode tab", err)
		}
		tabIDs = append(tabIDs, t.ID)
	}
	if len(tabIDs) > 0 {
		if _, err := s.revisions.DeleteMany(ctx, bson.M{"tab_id": bson.M{"$in": tabIDs}}); err != nil {
			return core.NewError("documentstore/mongo.DeleteDocument", core.ErrIO, "delete revisions", err)
		}
	}
	if _, err := s.tabs.DeleteMany(ctx, bson.M{"document_id": string(id)}); err != nil {
		return core.NewError("documentstore/mongo.DeleteDocument", core.ErrIO, "delete tabs", err)
	}
	res, err := s.documents.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return core.NewError("documentstore/mongo.DeleteDocument", core.ErrIO, "delete document", err)
	}
	if res.DeletedCount == 0 {
		return core.NewError("documentstore/mongo.DeleteDocument", core.ErrNotFound, "document "+string(id), nil)
	}
	return nil
}

type tabDoc struct {
	ID                string   `bson:"_id"`
	DocumentID        string   `bson:"document_id"`
	ParentTabID       string   `bson:"parent_tab_id,omitempty"`
	Position          int      `bson:"position"`
	Title             string   `bson:"title"`
	Icon              string   `bson:"icon,omitempty"`
	ContentMarkdown   string   `bson:"content_markdown"`
	ReferencedAssets  []string `bson:"referenced_assets,omitempty"`
	CurrentRevisionID string   `bson:"current_revision_id,omitempty"`
	UpdatedAt         int64    `bson:"updated_at"`
}

func toTabDoc(t schema.Tab) tabDoc {
	assets := make([]string, len(t.ReferencedAssets))
	for i, a := range t.ReferencedAssets {
		assets[i] = string(a)
	}
	return tabDoc{
		ID: string(t.ID), DocumentID: string(t.DocumentID), ParentTabID: string(t.ParentTabID),
		Position: t.Position, Title: t.Title, Icon: t.Icon, ContentMarkdown: t.ContentMarkdown,
		ReferencedAssets: assets, CurrentRevisionID: string(t.CurrentRevisionID), UpdatedAt: t.UpdatedAt,
	}
}

func (t tabDoc) toSchema() schema.Tab {
	assets := make([]ids.AssetID, len(t.ReferencedAssets))
	for i, a := range t.ReferencedAssets {
		assets[i] = ids.AssetID(a)
	}
	return schema.Tab{
		ID: ids.TabID(t.ID), DocumentID: ids.DocumentID(t.DocumentID), ParentTabID: ids.TabID(t.ParentTabID),
		Position: t.Position, Title: t.Title, Icon: t.Icon, ContentMarkdown: t.ContentMarkdown,
		ReferencedAssets: assets, CurrentRevisionID: ids.RevisionID(t.CurrentRevisionID), UpdatedAt: t.UpdatedAt,
	}
}

func (s *Store) CreateTab(ctx context.Context, t schema.Tab) (schema.Tab, error) {
	if t.ID == "" {
		t.ID = ids.TabID(ids.New())
	}
	if _, err := s.tabs.InsertOne(ctx, toTabDoc(t)); err != nil {
		return schema.Tab{}, core.NewError("documentstore/mongo.CreateTab", core.ErrIO, "insert", err)
	}
	return t, nil
}

func (s *Store) ListDocumentTabs(ctx context.Context, docID ids.DocumentID) ([]schema.Tab, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := s.tabs.Find(ctx, bson.M{"document_id": string(docID)}, opts)
	if err != nil {
		return nil, core.NewError("documentstore/mongo.ListDocumentTabs", core.ErrIO, "find", err)
	}
	var out []schema.Tab
	for cur.Next(ctx) {
		var t tabDoc
		if err := cur.Decode(&t); err != nil {
			return nil, core.NewError("documentstore/mongo.ListDocumentTabs", core.ErrIO, "decode", err)
		}
		out = append(out, t.toSchema())
	}
	return out, nil
}

func (s *Store) GetTab(ctx context.Context, id ids.TabID) (schema.Tab, error) {
	var t tabDoc
	err := s.tabs.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return schema.Tab{}, core.NewError("documentstore/mongo.GetTab", core.ErrNotFound, "tab "+string(id), err)
	}
	if err != nil {
		return schema.Tab{}, core.NewError("documentstore/mongo.GetTab", core.ErrIO, "find", err)
	}
	return t.toSchema(), nil
}

func (s *Store) UpdateTabContent(ctx context.Context, id ids.TabID, markdown string, assets []ids.AssetID) error {
	assetStrs := make([]string, len(assets))
	for i, a := range assets {
		assetStrs[i] = string(a)
	}
	res, err := s.tabs.UpdateOne(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": bson.M{"content_markdown": markdown, "referenced_assets": assetStrs, "updated_at": time.Now().UnixMilli()}},
	)
	if err != nil {
		return core.NewError("documentstore/mongo.UpdateTabContent", core.ErrIO, "update", err)
	}
	if res.MatchedCount == 0 {
		return core.NewError("documentstore/mongo.UpdateTabContent", core.ErrNotFound, "tab "+string(id), nil)
	}
	return nil
}

type revisionDoc struct {
	ID               string   `bson:"_id"`
	TabID            string   `bson:"tab_id"`
	RevisionNumber   int      `bson:"revision_number"`
	Markdown         string   `bson:"markdown"`
	ContentHash      string   `bson:"content_hash"`
	ReferencedAssets []string `bson:"referenced_assets,omitempty"`
	CreatedBy        string   `bson:"created_by,omitempty"`
	CreatedAt        int64    `bson:"created_at"`
}

func (s *Store) CreateRevision(ctx context.Context, tabID ids.TabID, markdown, hash string, assets []ids.AssetID, createdBy ids.UserID) (schema.Revision, error) {
	count, err := s.revisions.CountDocuments(ctx, bson.M{"tab_id": string(tabID)})
	if err != nil {
		return schema.Revision{}, core.NewError("documentstore/mongo.CreateRevision", core.ErrIO, "count", err)
	}
	assetStrs := make([]string, len(assets))
	for i, a := range assets {
		assetStrs[i] = string(a)
	}
	rev := revisionDoc{
		ID: ids.New(), TabID: string(tabID), RevisionNumber: int(count) + 1,
		Markdown: markdown, ContentHash: hash, ReferencedAssets: assetStrs, CreatedBy: string(createdBy),
	}
	if _, err := s.revisions.InsertOne(ctx, rev); err != nil {
		return schema.Revision{}, core.NewError("documentstore/mongo.CreateRevision", core.ErrIO, "insert", err)
	}
	out := make([]ids.AssetID, len(assets))
	copy(out, assets)
	return schema.Revision{
		ID: ids.RevisionID(rev.ID), TabID: tabID, RevisionNumber: rev.RevisionNumber,
		Markdown: markdown, ContentHash: hash, ReferencedAssets: out, CreatedBy: createdBy,
	}, nil
}

func (s *Store) SetTabRevision(ctx context.Context, tabID ids.TabID, revisionID ids.RevisionID) error {
	res, err := s.tabs.UpdateOne(ctx,
		bson.M{"_id": string(tabID)},
		bson.M{"$set": bson.M{"current_revision_id": string(revisionID)}},
	)
	if err != nil {
		return core.NewError("documentstore/mongo.SetTabRevision", core.ErrIO, "update", err)
	}
	if res.MatchedCount == 0 {
		return core.NewError("documentstore/mongo.SetTabRevision", core.ErrNotFound, "tab "+string(tabID), nil)
	}
	return nil
}
