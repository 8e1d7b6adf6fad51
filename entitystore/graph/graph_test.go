package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/schema"
)

// mockRunner implements sessionRunner for testing, recording every write
// and replaying canned rows for reads.
type mockRunner struct {
	mu       sync.Mutex
	writes   []writeCall
	readData []record
	writeErr error
	readErr  error
	closed   bool
}

type writeCall struct {
	cypher string
	params map[string]any
}

func (r *mockRunner) executeWrite(_ context.Context, cypher string, params map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, writeCall{cypher: cypher, params: params})
	return r.writeErr
}

func (r *mockRunner) executeRead(_ context.Context, _ string, _ map[string]any) ([]record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	return r.readData, nil
}

func (r *mockRunner) close(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newMockStore() (*Store, *mockRunner) {
	runner := &mockRunner{}
	return newWithRunner(runner), runner
}

func TestAddRelation_MergesEdgeWithParams(t *testing.T) {
	s, runner := newMockStore()

	err := s.AddRelation(context.Background(), schema.Relation{
		FromID:   ids.EntityID("alice"),
		ToID:     ids.EntityID("bob"),
		Relation: "knows",
		Metadata: map[string]any{"since": "2024"},
	})
	require.NoError(t, err)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.writes, 1)
	assert.Equal(t, "alice", runner.writes[0].params["from"])
	assert.Equal(t, "bob", runner.writes[0].params["to"])
	assert.Equal(t, "knows", runner.writes[0].params["relation"])
}

func TestAddRelation_PropagatesError(t *testing.T) {
	s, runner := newMockStore()
	runner.writeErr = errors.New("connection refused")

	err := s.AddRelation(context.Background(), schema.Relation{FromID: "a", ToID: "b", Relation: "r"})
	require.Error(t, err)
}

func TestRemoveRelation_DeletesMatchingEdge(t *testing.T) {
	s, runner := newMockStore()

	err := s.RemoveRelation(context.Background(), ids.EntityID("a"), ids.EntityID("b"), "knows")
	require.NoError(t, err)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.writes, 1)
	assert.Equal(t, "a", runner.writes[0].params["from"])
	assert.Equal(t, "b", runner.writes[0].params["to"])
	assert.Equal(t, "knows", runner.writes[0].params["relation"])
}

func TestListRelations_UnfilteredReturnsAllEdges(t *testing.T) {
	runner := &mockRunner{
		readData: []record{
			{"to.id": "bob", "rel.relation": "knows", "rel.metadata": map[string]any{"since": "2024"}},
			{"to.id": "carol", "rel.relation": "manages"},
		},
	}
	s := newWithRunner(runner)

	rels, err := s.ListRelations(context.Background(), ids.EntityID("alice"), "")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, ids.EntityID("alice"), rels[0].FromID)
	assert.Equal(t, ids.EntityID("bob"), rels[0].ToID)
	assert.Equal(t, "knows", rels[0].Relation)
	assert.Equal(t, "2024", rels[0].Metadata["since"])
	assert.Equal(t, "manages", rels[1].Relation)
}

func TestListRelations_FiltersByRelationType(t *testing.T) {
	s, _ := newMockStore()

	_, err := s.ListRelations(context.Background(), ids.EntityID("alice"), "knows")
	require.NoError(t, err)
}

func TestListRelations_PropagatesReadError(t *testing.T) {
	runner := &mockRunner{readErr: errors.New("syntax error")}
	s := newWithRunner(runner)

	_, err := s.ListRelations(context.Background(), ids.EntityID("alice"), "")
	require.Error(t, err)
}

func TestNeighborIDs_ReturnsDistinctIDs(t *testing.T) {
	runner := &mockRunner{
		readData: []record{
			{"to.id": "bob"},
			{"to.id": "carol"},
		},
	}
	s := newWithRunner(runner)

	ids_, err := s.NeighborIDs(context.Background(), ids.EntityID("alice"), "knows", 2)
	require.NoError(t, err)
	require.Len(t, ids_, 2)
	assert.Equal(t, ids.EntityID("bob"), ids_[0])
	assert.Equal(t, ids.EntityID("carol"), ids_[1])
}

func TestNeighborIDs_DefaultsHopsToOne(t *testing.T) {
	s, _ := newMockStore()

	_, err := s.NeighborIDs(context.Background(), ids.EntityID("alice"), "knows", 0)
	require.NoError(t, err)
}

func TestNeighborIDs_PropagatesReadError(t *testing.T) {
	runner := &mockRunner{readErr: errors.New("traverse failed")}
	s := newWithRunner(runner)

	_, err := s.NeighborIDs(context.Background(), ids.EntityID("alice"), "knows", 1)
	require.Error(t, err)
}

func TestClose_DelegatesToRunner(t *testing.T) {
	s, runner := newMockStore()

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, runner.closed)
}
