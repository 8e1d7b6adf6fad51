// Package docresolve implements document reference resolution (§4.9): before
// a ChatRequest reaches a model, every DocumentRefPart is replaced with
// rendered text so the model sees real content instead of an opaque id.
// Grounded on the original implementation's storage/document_resolver.rs
// (parallel load, first-occurrence-full/subsequent-occurrence-shorthand
// templates), but diverging from it deliberately on one point: the original
// silently drops documents it cannot load, while this resolver substitutes
// a diagnostic placeholder so the model still sees an anchor (testable
// property 14).
package docresolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/documentstore"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// Resolver resolves DocumentRefParts in a ChatRequest against a DocumentStore.
type Resolver struct {
	docs documentstore.Store
}

// New builds a Resolver over the given DocumentStore.
func New(docs documentstore.Store) *Resolver {
	return &Resolver{docs: docs}
}

type resolved struct {
	doc  schema.Document
	tabs []schema.Tab
	err  error
}

// Resolve rewrites req in place, replacing every DocumentRefPart with a
// text block: the first occurrence of a given document id gets the full
// rendering (title, every tab's markdown, in tab order); later occurrences
// get a compact shorthand (title + id). A document that fails to load is
// replaced with a diagnostic placeholder instead of being dropped, so the
// model still sees that something was referenced there.
func (r *Resolver) Resolve(ctx context.Context, req *schema.ChatRequest) {
	ids := collectDocumentIDs(req)
	if len(ids) == 0 {
		return
	}
	docs := r.loadAll(ctx, ids)

	seen := make(map[string]bool, len(ids))
	for i := range req.Messages {
		msg := &req.Messages[i]
		for j, part := range msg.Payload.Content {
			ref, ok := part.(schema.DocumentRefPart)
			if !ok {
				continue
			}
			res := docs[ref.ID]
			var text string
			switch {
			case res.err != nil:
				text = fmt.Sprintf("[Document '%s' could not be loaded]", ref.Title)
			case !seen[ref.ID]:
				text = renderFull(res.doc, res.tabs)
			default:
				text = renderShorthand(res.doc)
			}
			seen[ref.ID] = true
			msg.Payload.Content[j] = schema.TextPart{Text: text}
		}
	}
}

func collectDocumentIDs(req *schema.ChatRequest) []string {
	seen := make(map[string]bool)
	var out []string
	for _, msg := range req.Messages {
		for _, part := range msg.Payload.Content {
			if ref, ok := part.(schema.DocumentRefPart); ok && !seen[ref.ID] {
				seen[ref.ID] = true
				out = append(out, ref.ID)
			}
		}
	}
	return out
}

// loadAll fetches every document and its tabs in parallel, capped at 8
// concurrent loads so a message referencing many documents cannot exhaust
// the store's connection pool.
func (r *Resolver) loadAll(ctx context.Context, docIDs []string) map[string]resolved {
	results := core.BatchInvoke(ctx, func(ctx context.Context, id string) (resolved, error) {
		return r.loadOne(ctx, ids.DocumentID(id)), nil
	}, docIDs, core.BatchOptions{MaxConcurrency: 8})

	out := make(map[string]resolved, len(docIDs))
	for i, id := range docIDs {
		out[id] = results[i].Value
	}
	return out
}

func (r *Resolver) loadOne(ctx context.Context, id ids.DocumentID) resolved {
	doc, err := r.docs.GetDocument(ctx, id)
	if err != nil {
		return resolved{err: err}
	}
	tabs, err := r.docs.ListDocumentTabs(ctx, id)
	if err != nil {
		return resolved{err: err}
	}
	return resolved{doc: doc, tabs: tabs}
}

func renderFull(doc schema.Document, tabs []schema.Tab) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	for _, tab := range tabs {
		icon := tab.Icon
		if icon == "" {
			icon = "📄"
		}
		fmt.Fprintf(&b, "## %s %s\n\n%s\n\n", icon, tab.Title, tab.ContentMarkdown)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderShorthand(doc schema.Document) string {
	return fmt.Sprintf("[Document: %s (%s)]", doc.Title, doc.ID)
}
