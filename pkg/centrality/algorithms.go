// Package centrality computes importance metrics (PageRank, degree,
// betweenness) over the knowledge graph and persists them back onto entity
// nodes under an atomic, schema-versioned protocol.
package centrality

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/relicore/chrongraph/pkg/driver"
)

// Direction selects which incident edges count toward a node's degree.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

// Weights controls how the three raw metrics combine into CompositeImportance.
type Weights struct {
	PageRank    float64
	Degree      float64
	Betweenness float64
}

// DefaultWeights matches the reference weighting: pagerank dominates, degree
// and betweenness contribute less.
var DefaultWeights = Weights{PageRank: 0.5, Degree: 0.3, Betweenness: 0.2}

// Scores holds every computed metric for one node.
type Scores struct {
	NodeUUID    string
	PageRank    float64
	Degree      int
	Betweenness float64
	Importance  float64
}

// Options configures a full Calculate run.
type Options struct {
	GroupID string

	DampingFactor float64 // PageRank damping, default 0.85
	Iterations    int     // PageRank iterations, default 20

	DegreeDirection Direction // default DirectionBoth

	BetweennessSampleSize int // default min(50, N/2); 0 means "compute default"
	BetweennessMaxDepth   int // bounded BFS depth, default 6

	Weights Weights // default DefaultWeights
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.DampingFactor == 0 {
		out.DampingFactor = 0.85
	}
	if out.Iterations == 0 {
		out.Iterations = 20
	}
	if out.DegreeDirection == "" {
		out.DegreeDirection = DirectionBoth
	}
	if out.BetweennessMaxDepth == 0 {
		out.BetweennessMaxDepth = 6
	}
	if out.Weights == (Weights{}) {
		out.Weights = DefaultWeights
	}
	return out
}

// adjacency is a directed edge list keyed by source node UUID, built once
// per Calculate call and shared across all three algorithms.
type adjacency struct {
	nodeIDs []string
	out     map[string][]string
	in      map[string][]string
}

func loadAdjacency(ctx context.Context, d driver.GraphDriver, groupID string) (*adjacency, error) {
	var nodesQuery, edgesQuery string
	params := map[string]interface{}{}

	if groupID != "" {
		nodesQuery = `MATCH (n) WHERE n.group_id = $group_id RETURN n.uuid AS uuid`
		edgesQuery = `MATCH (s)-[e]->(t) WHERE s.group_id = $group_id RETURN s.uuid AS source, t.uuid AS target`
		params["group_id"] = groupID
	} else {
		nodesQuery = `MATCH (n) RETURN n.uuid AS uuid`
		edgesQuery = `MATCH (s)-[e]->(t) RETURN s.uuid AS source, t.uuid AS target`
	}

	nodeRecords, _, _, err := d.ExecuteQuery(ctx, nodesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("loading node ids: %w", err)
	}
	edgeRecords, _, _, err := d.ExecuteQuery(ctx, edgesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}

	a := &adjacency{out: make(map[string][]string), in: make(map[string][]string)}

	rows, ok := nodeRecords.([]map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected node record shape %T", nodeRecords)
	}
	for _, row := range rows {
		if uuid, ok := row["uuid"].(string); ok {
			a.nodeIDs = append(a.nodeIDs, uuid)
		}
	}

	edgeRows, ok := edgeRecords.([]map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected edge record shape %T", edgeRecords)
	}
	for _, row := range edgeRows {
		source, sOK := row["source"].(string)
		target, tOK := row["target"].(string)
		if !sOK || !tOK {
			continue
		}
		a.out[source] = append(a.out[source], target)
		a.in[target] = append(a.in[target], source)
	}

	return a, nil
}

// PageRank runs the standard power-iteration PageRank over the loaded
// adjacency, returning a score per node summing to approximately 1.
func PageRank(a *adjacency, dampingFactor float64, iterations int) map[string]float64 {
	n := len(a.nodeIDs)
	if n == 0 {
		return map[string]float64{}
	}

	scores := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, id := range a.nodeIDs {
		scores[id] = initial
	}

	for iter := 0; iter < iterations; iter++ {
		// Nodes without out-edges spread their score evenly over all nodes,
		// so the total stays 1.
		var dangling float64
		for _, id := range a.nodeIDs {
			if len(a.out[id]) == 0 {
				dangling += scores[id]
			}
		}
		next := make(map[string]float64, n)
		base := (1-dampingFactor)/float64(n) + dampingFactor*dangling/float64(n)
		for _, id := range a.nodeIDs {
			next[id] = base
		}
		for _, source := range a.nodeIDs {
			outDegree := len(a.out[source])
			if outDegree == 0 {
				continue
			}
			share := dampingFactor * scores[source] / float64(outDegree)
			for _, target := range a.out[source] {
				next[target] += share
			}
		}
		scores = next
	}

	return scores
}

// Degree counts incident edges per node in the given direction.
func Degree(a *adjacency, direction Direction) map[string]int {
	degrees := make(map[string]int, len(a.nodeIDs))
	for _, id := range a.nodeIDs {
		switch direction {
		case DirectionIn:
			degrees[id] = len(a.in[id])
		case DirectionOut:
			degrees[id] = len(a.out[id])
		default:
			degrees[id] = len(a.in[id]) + len(a.out[id])
		}
	}
	return degrees
}

// Betweenness estimates betweenness centrality by sampling sampleSize source
// nodes and running bounded-depth BFS shortest paths from each, accumulating
// how often every other node sits on a shortest path. The result is
// normalized by 2/((N-1)(N-2)), the standard undirected-pair count.
func Betweenness(a *adjacency, sampleSize, maxDepth int) map[string]float64 {
	n := len(a.nodeIDs)
	scores := make(map[string]float64, n)
	if n < 3 {
		for _, id := range a.nodeIDs {
			scores[id] = 0
		}
		return scores
	}
	for _, id := range a.nodeIDs {
		scores[id] = 0
	}

	if sampleSize <= 0 || sampleSize > n {
		sampleSize = n
	}

	undirected := make(map[string][]string, n)
	for _, id := range a.nodeIDs {
		undirected[id] = append(append([]string{}, a.out[id]...), a.in[id]...)
	}

	for i := 0; i < sampleSize; i++ {
		source := a.nodeIDs[i]
		accumulateShortestPaths(source, undirected, maxDepth, scores)
	}

	normalization := 2.0 / (float64(n-1) * float64(n-2))
	for id := range scores {
		scores[id] *= normalization
	}
	return scores
}

// accumulateShortestPaths runs a breadth-first search from source up to
// maxDepth and, for every node reached, credits every strict interior node
// on the (first-found) shortest path with one unit of betweenness.
func accumulateShortestPaths(source string, adjacency map[string][]string, maxDepth int, scores map[string]float64) {
	prev := map[string]string{source: ""}
	dist := map[string]int{source: 0}
	queue := []string{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if dist[current] >= maxDepth {
			continue
		}
		for _, next := range adjacency[current] {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[current] + 1
			prev[next] = current
			queue = append(queue, next)
		}
	}

	for node, d := range dist {
		if node == source || d < 2 {
			continue
		}
		for at := prev[node]; at != source && at != ""; at = prev[at] {
			scores[at]++
		}
	}
}

// Composite combines the three raw metrics into a single importance score
// using the reference weighting: pagerank scaled by 1000, degree log-scaled,
// betweenness scaled by 100.
func Composite(pagerank float64, degree int, betweenness float64, w Weights) float64 {
	normalizedPageRank := pagerank * 1000
	normalizedDegree := math.Log(float64(degree) + 1)
	normalizedBetweenness := betweenness * 100
	return w.PageRank*normalizedPageRank + w.Degree*normalizedDegree + w.Betweenness*normalizedBetweenness
}

// Calculate runs PageRank, degree, and betweenness over the graph (optionally
// scoped to a group) and combines them into a composite importance score per
// node. It does not persist anything — pair with Storage.Commit for that.
func Calculate(ctx context.Context, d driver.GraphDriver, opts Options) (map[string]*Scores, error) {
	opts = opts.withDefaults()

	a, err := loadAdjacency(ctx, d, opts.GroupID)
	if err != nil {
		return nil, err
	}
	if len(a.nodeIDs) == 0 {
		return map[string]*Scores{}, nil
	}

	sampleSize := opts.BetweennessSampleSize
	if sampleSize <= 0 {
		sampleSize = len(a.nodeIDs) / 2
		if sampleSize > 50 {
			sampleSize = 50
		}
		if sampleSize == 0 {
			sampleSize = len(a.nodeIDs)
		}
	}

	var pagerank map[string]float64
	var degree map[string]int
	var betweenness map[string]float64

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		pagerank = PageRank(a, opts.DampingFactor, opts.Iterations)
		return nil
	})
	g.Go(func() error {
		degree = Degree(a, opts.DegreeDirection)
		return nil
	})
	g.Go(func() error {
		betweenness = Betweenness(a, sampleSize, opts.BetweennessMaxDepth)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Scores, len(a.nodeIDs))
	for _, id := range a.nodeIDs {
		s := &Scores{
			NodeUUID:    id,
			PageRank:    pagerank[id],
			Degree:      degree[id],
			Betweenness: betweenness[id],
		}
		s.Importance = Composite(s.PageRank, s.Degree, s.Betweenness, opts.Weights)
		out[id] = s
	}
	return out, nil
}
