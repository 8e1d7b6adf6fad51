// Package graph backs the entity relation graph (§3.1: "directed relations
// forming a typed graph") with Neo4j, via Cypher, instead of a relational
// join table. It implements only the relation half of entitystore.Store;
// entity CRUD stays on entitystore/postgres (or inmemory) — a deployment
// that wants genuine graph traversal (shortest path, multi-hop neighbors)
// composes the two, writing relations to both or routing relation reads
// here exclusively.
package graph

import (
	"context"
	"strconv"

	neo4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// record is one row of a Cypher RETURN, keyed by the column name/alias
// exactly as written in the query (e.g. "to.id", "rel.relation").
type record map[string]any

// sessionRunner abstracts Neo4j session operations for testability. The
// driver's own session/transaction/result types carry unexported fields
// that make them impossible to construct outside the driver package, so
// queries run through this thin seam instead.
type sessionRunner interface {
	executeWrite(ctx context.Context, cypher string, params map[string]any) error
	executeRead(ctx context.Context, cypher string, params map[string]any) ([]record, error)
	close(ctx context.Context) error
}

// neo4jRunner is the sessionRunner backed by a real driver.
type neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *neo4jRunner) executeWrite(ctx context.Context, cypher string, params map[string]any) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	return err
}

func (r *neo4jRunner) executeRead(ctx context.Context, cypher string, params map[string]any) ([]record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []record
		for res.Next(ctx) {
			rec := res.Record()
			m := make(record, len(rec.Keys))
			for i, k := range rec.Keys {
				m[k] = rec.Values[i]
			}
			out = append(out, m)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]record), nil
}

func (r *neo4jRunner) close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Store wraps a Neo4j driver for relation storage and traversal.
type Store struct {
	runner sessionRunner
}

// Config configures a Store.
type Config struct {
	URI      string
	Username string
	Password string
	Database string // empty uses the default database
}

// New connects to Neo4j using basic auth.
func New(cfg Config) (*Store, error) {
	drv, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, core.NewError("entitystore/graph.New", core.ErrIO, "connect", err)
	}
	return &Store{runner: &neo4jRunner{driver: drv, database: cfg.Database}}, nil
}

// newWithRunner builds a Store around an arbitrary sessionRunner, used in
// tests to substitute a fake for a live driver.
func newWithRunner(r sessionRunner) *Store { return &Store{runner: r} }

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.runner.close(ctx)
}

// AddRelation upserts a (:Entity{id:from})-[:RELATION {relation}]->(:Entity{id:to})
// edge, creating placeholder Entity nodes if they do not already exist.
func (s *Store) AddRelation(ctx context.Context, r schema.Relation) error {
	err := s.runner.executeWrite(ctx, `
		MERGE (from:Entity {id: $from})
		MERGE (to:Entity {id: $to})
		MERGE (from)-[rel:RELATES {relation: $relation}]->(to)
		SET rel.metadata = $metadata`,
		map[string]any{
			"from":     string(r.FromID),
			"to":       string(r.ToID),
			"relation": r.Relation,
			"metadata": r.Metadata,
		})
	if err != nil {
		return core.NewError("entitystore/graph.AddRelation", core.ErrIO, "merge edge", err)
	}
	return nil
}

// RemoveRelation deletes one typed edge between two entities.
func (s *Store) RemoveRelation(ctx context.Context, fromID, toID ids.EntityID, relation string) error {
	err := s.runner.executeWrite(ctx, `
		MATCH (from:Entity {id: $from})-[rel:RELATES {relation: $relation}]->(to:Entity {id: $to})
		DELETE rel`,
		map[string]any{"from": string(fromID), "to": string(toID), "relation": relation})
	if err != nil {
		return core.NewError("entitystore/graph.RemoveRelation", core.ErrIO, "delete edge", err)
	}
	return nil
}

// ListRelations returns every outgoing edge from fromID, optionally filtered
// by relation type.
func (s *Store) ListRelations(ctx context.Context, fromID ids.EntityID, relation string) ([]schema.Relation, error) {
	cypher := `MATCH (from:Entity {id: $from})-[rel:RELATES]->(to:Entity) RETURN to.id, rel.relation, rel.metadata`
	params := map[string]any{"from": string(fromID)}
	if relation != "" {
		cypher = `MATCH (from:Entity {id: $from})-[rel:RELATES {relation: $relation}]->(to:Entity) RETURN to.id, rel.relation, rel.metadata`
		params["relation"] = relation
	}

	records, err := s.runner.executeRead(ctx, cypher, params)
	if err != nil {
		return nil, core.NewError("entitystore/graph.ListRelations", core.ErrIO, "query", err)
	}
	var out []schema.Relation
	for _, rec := range records {
		toID, _ := rec["to.id"].(string)
		rel, _ := rec["rel.relation"].(string)
		r := schema.Relation{FromID: fromID, ToID: ids.EntityID(toID), Relation: rel}
		if m, ok := rec["rel.metadata"].(map[string]any); ok {
			r.Metadata = m
		}
		out = append(out, r)
	}
	return out, nil
}

// NeighborIDs returns the distinct ids reachable from fromID within hops
// steps along RELATES edges of the given relation type. A multi-hop
// traversal like this is the reason the relation graph is backed by a
// property graph rather than a single join table.
func (s *Store) NeighborIDs(ctx context.Context, fromID ids.EntityID, relation string, hops int) ([]ids.EntityID, error) {
	if hops < 1 {
		hops = 1
	}
	records, err := s.runner.executeRead(ctx, `
		MATCH (from:Entity {id: $from})-[:RELATES* 1..`+strconv.Itoa(hops)+` {relation: $relation}]->(to:Entity)
		RETURN DISTINCT to.id`,
		map[string]any{"from": string(fromID), "relation": relation})
	if err != nil {
		return nil, core.NewError("entitystore/graph.NeighborIDs", core.ErrIO, "traverse", err)
	}
	var out []ids.EntityID
	for _, rec := range records {
		id, _ := rec["to.id"].(string)
		out = append(out, ids.EntityID(id))
	}
	return out, nil
}
