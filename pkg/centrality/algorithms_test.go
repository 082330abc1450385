package centrality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicore/chrongraph/pkg/types"
)

func buildChainGraph(t *testing.T) *fakeQueryDriver {
	t.Helper()
	ctx := context.Background()
	d := newFakeQueryDriver()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, d.UpsertNode(ctx, &types.Node{Uuid: id, Name: id, GroupID: "g1", Type: types.EntityNodeType}))
	}
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}}
	for i, e := range edges {
		require.NoError(t, d.addEdge(ctx, string(rune('e'+i)), e[0], e[1], "g1"))
	}
	return d
}

func TestPageRankSumsToApproximatelyOne(t *testing.T) {
	ctx := context.Background()
	d := buildChainGraph(t)

	a, err := loadAdjacency(ctx, d, "g1")
	require.NoError(t, err)

	scores := PageRank(a, 0.85, 20)
	require.Len(t, scores, 4)

	var sum float64
	for _, v := range scores {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 0.05)
}

func TestDegreeDirections(t *testing.T) {
	ctx := context.Background()
	d := buildChainGraph(t)

	a, err := loadAdjacency(ctx, d, "g1")
	require.NoError(t, err)

	out := Degree(a, DirectionOut)
	assert.Equal(t, 1, out["a"])
	assert.Equal(t, 0, out["d"])

	in := Degree(a, DirectionIn)
	assert.Equal(t, 0, in["a"])
	assert.Equal(t, 1, in["d"])

	both := Degree(a, DirectionBoth)
	assert.Equal(t, 2, both["b"])
}

func TestBetweennessMiddleNodeScoresHighest(t *testing.T) {
	ctx := context.Background()
	d := buildChainGraph(t)

	a, err := loadAdjacency(ctx, d, "g1")
	require.NoError(t, err)

	scores := Betweenness(a, 0, 6)
	assert.Greater(t, scores["b"], scores["a"])
	assert.Greater(t, scores["c"], scores["d"])
}

func TestCompositeWeighting(t *testing.T) {
	score := Composite(0.01, 3, 0.02, DefaultWeights)
	assert.Greater(t, score, 0.0)
}

func TestCalculateEmptyGraph(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()

	scores, err := Calculate(ctx, d, Options{GroupID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestCalculateProducesAllMetrics(t *testing.T) {
	ctx := context.Background()
	d := buildChainGraph(t)

	scores, err := Calculate(ctx, d, Options{GroupID: "g1"})
	require.NoError(t, err)
	require.Len(t, scores, 4)

	for _, s := range scores {
		assert.GreaterOrEqual(t, s.PageRank, 0.0)
		assert.GreaterOrEqual(t, s.Degree, 0)
		assert.GreaterOrEqual(t, s.Importance, 0.0)
	}
}
