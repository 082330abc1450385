package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicore/chrongraph/pkg/types"
)

func TestMemoryDriverUpsertAndGetNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDriver()

	node := &types.Node{Uuid: "n1", Name: "Alice", GroupID: "g1", Type: types.EntityNodeType}
	require.NoError(t, d.UpsertNode(ctx, node))

	got, err := d.GetNode(ctx, "n1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = d.GetNode(ctx, "n1", "g2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDriverSearchNodesByEmbedding(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDriver()

	require.NoError(t, d.UpsertNode(ctx, &types.Node{
		Uuid: "n1", Name: "close", GroupID: "g1", Type: types.EntityNodeType,
		NameEmbedding: []float32{1, 0, 0},
	}))
	require.NoError(t, d.UpsertNode(ctx, &types.Node{
		Uuid: "n2", Name: "far", GroupID: "g1", Type: types.EntityNodeType,
		NameEmbedding: []float32{0, 1, 0},
	}))

	results, err := d.SearchNodesByEmbedding(ctx, []float32{1, 0, 0}, "g1", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "n1", results[0].Uuid)
}

func TestMemoryDriverGetNeighborsAndNodeNeighbors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDriver()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.UpsertNode(ctx, &types.Node{Uuid: id, Name: id, GroupID: "g1", Type: types.EntityNodeType}))
	}
	require.NoError(t, d.UpsertEdge(ctx, &types.Edge{
		BaseEdge: types.BaseEdge{Uuid: "e1", GroupID: "g1", SourceNodeID: "a", TargetNodeID: "b"},
		Type:     types.EntityEdgeType,
	}))
	require.NoError(t, d.UpsertEdge(ctx, &types.Edge{
		BaseEdge: types.BaseEdge{Uuid: "e2", GroupID: "g1", SourceNodeID: "b", TargetNodeID: "c"},
		Type:     types.EntityEdgeType,
	}))

	oneHop, err := d.GetNeighbors(ctx, "a", "g1", 1)
	require.NoError(t, err)
	require.Len(t, oneHop, 1)
	assert.Equal(t, "b", oneHop[0].Uuid)

	twoHop, err := d.GetNeighbors(ctx, "a", "g1", 2)
	require.NoError(t, err)
	assert.Len(t, twoHop, 2)

	neighbors, err := d.GetNodeNeighbors(ctx, "b", "g1")
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
}

func TestMemoryDriverRetrieveEpisodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDriver()
	now := time.Now()

	require.NoError(t, d.UpsertNode(ctx, &types.Node{
		Uuid: "ep1", GroupID: "g1", Type: types.EpisodicNodeType, Reference: now.Add(-time.Hour),
	}))
	require.NoError(t, d.UpsertNode(ctx, &types.Node{
		Uuid: "ep2", GroupID: "g1", Type: types.EpisodicNodeType, Reference: now.Add(-time.Minute),
	}))

	episodes, err := d.RetrieveEpisodes(ctx, now, []string{"g1"}, 1, nil)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "ep2", episodes[0].Uuid)
}

func TestMemoryDriverExecuteQueryUnsupported(t *testing.T) {
	t.Parallel()

	d := NewMemoryDriver()
	_, _, _, err := d.ExecuteQuery(context.Background(), "MATCH (n) RETURN n", nil)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)
}

var _ GraphDriver = (*MemoryDriver)(nil)
