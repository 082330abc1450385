package driver

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relicore/chrongraph/pkg/types"
)

// MemoryDriver is an in-process GraphDriver backed by plain maps. It exists
// so pipeline and search code can be exercised in tests without a live
// Neo4j instance; it implements the full GraphDriver contract but none of
// its query execution is Cypher — ExecuteQuery always returns an error.
type MemoryDriver struct {
	mu sync.RWMutex

	nodes map[string]*types.Node
	edges map[string]*types.Edge

	// mentions maps an episode UUID to the UUIDs of entities it mentions.
	mentions map[string][]string
}

// NewMemoryDriver creates an empty in-memory graph.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		nodes:    make(map[string]*types.Node),
		edges:    make(map[string]*types.Edge),
		mentions: make(map[string][]string),
	}
}

func (m *MemoryDriver) ExecuteQuery(ctx context.Context, cypherQuery string, kwargs map[string]interface{}) (interface{}, interface{}, interface{}, error) {
	return nil, nil, nil, ErrUnsupportedQuery
}

func (m *MemoryDriver) Session(database *string) GraphDriverSession { return nil }

func (m *MemoryDriver) Close() error { return nil }

func (m *MemoryDriver) DeleteAllIndexes(database string) {}

func (m *MemoryDriver) Provider() GraphProvider { return GraphProviderMemory }

func (m *MemoryDriver) GetAossClient() interface{} { return nil }

func (m *MemoryDriver) GetNode(ctx context.Context, nodeID, groupID string) (*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[nodeID]
	if !ok || (groupID != "" && node.GroupID != groupID) {
		return nil, ErrNotFound
	}
	return node, nil
}

func (m *MemoryDriver) UpsertNode(ctx context.Context, node *types.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes[node.Uuid] = node
	if node.Type == types.EpisodicNodeType {
		m.mentions[node.Uuid] = append([]string{}, node.EntityEdges...)
	}
	return nil
}

func (m *MemoryDriver) UpsertNodes(ctx context.Context, nodes []*types.Node) error {
	for _, n := range nodes {
		if err := m.UpsertNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryDriver) DeleteNode(ctx context.Context, nodeID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nodes, nodeID)
	delete(m.mentions, nodeID)
	return nil
}

func (m *MemoryDriver) GetNodes(ctx context.Context, nodeIDs []string, groupID string) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Node
	for _, id := range nodeIDs {
		if n, ok := m.nodes[id]; ok && (groupID == "" || n.GroupID == groupID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryDriver) GetEdge(ctx context.Context, edgeID, groupID string) (*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edge, ok := m.edges[edgeID]
	if !ok || (groupID != "" && edge.GroupID != groupID) {
		return nil, ErrNotFound
	}
	return edge, nil
}

func (m *MemoryDriver) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.edges[edge.Uuid] = edge
	return nil
}

func (m *MemoryDriver) UpsertEdges(ctx context.Context, edges []*types.Edge) error {
	for _, e := range edges {
		if err := m.UpsertEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryDriver) UpsertEpisodicEdge(ctx context.Context, episodeUUID, entityUUID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.mentions[episodeUUID] {
		if existing == entityUUID {
			return nil
		}
	}
	m.mentions[episodeUUID] = append(m.mentions[episodeUUID], entityUUID)
	return nil
}

func (m *MemoryDriver) UpsertCommunityEdge(ctx context.Context, communityUUID, nodeUUID, uuid, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.edges[uuid] = &types.Edge{
		BaseEdge: types.BaseEdge{
			Uuid:         uuid,
			GroupID:      groupID,
			SourceNodeID: communityUUID,
			TargetNodeID: nodeUUID,
			CreatedAt:    time.Now(),
		},
		Type: types.CommunityEdgeType,
	}
	return nil
}

func (m *MemoryDriver) DeleteEdge(ctx context.Context, edgeID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.edges, edgeID)
	return nil
}

func (m *MemoryDriver) GetEdges(ctx context.Context, edgeIDs []string, groupID string) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Edge
	for _, id := range edgeIDs {
		if e, ok := m.edges[id]; ok && (groupID == "" || e.GroupID == groupID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryDriver) GetNeighbors(ctx context.Context, nodeID, groupID string, maxDistance int) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := map[string]int{nodeID: 0}
	frontier := []string{nodeID}
	for dist := 1; dist <= maxDistance && len(frontier) > 0; dist++ {
		var next []string
		for _, id := range frontier {
			for _, adjacent := range m.adjacent(id) {
				if _, seen := visited[adjacent]; !seen {
					visited[adjacent] = dist
					next = append(next, adjacent)
				}
			}
		}
		frontier = next
	}

	var out []*types.Node
	for id, dist := range visited {
		if dist == 0 {
			continue
		}
		if n, ok := m.nodes[id]; ok && (groupID == "" || n.GroupID == groupID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// adjacent returns every node UUID connected to nodeUUID by an edge in
// either direction. Callers must hold m.mu.
func (m *MemoryDriver) adjacent(nodeUUID string) []string {
	var out []string
	for _, e := range m.edges {
		if e.SourceNodeID == nodeUUID {
			out = append(out, e.TargetNodeID)
		} else if e.TargetNodeID == nodeUUID {
			out = append(out, e.SourceNodeID)
		}
	}
	for episode, entities := range m.mentions {
		if episode == nodeUUID {
			out = append(out, entities...)
		}
		for _, entity := range entities {
			if entity == nodeUUID {
				out = append(out, episode)
			}
		}
	}
	return out
}

func (m *MemoryDriver) GetRelatedNodes(ctx context.Context, nodeID, groupID string, edgeTypes []types.EdgeType) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allowed := make(map[types.EdgeType]bool, len(edgeTypes))
	for _, t := range edgeTypes {
		allowed[t] = true
	}

	seen := make(map[string]bool)
	var out []*types.Node
	for _, e := range m.edges {
		if len(allowed) > 0 && !allowed[e.Type] {
			continue
		}
		var otherID string
		switch nodeID {
		case e.SourceNodeID:
			otherID = e.TargetNodeID
		case e.TargetNodeID:
			otherID = e.SourceNodeID
		default:
			continue
		}
		if seen[otherID] {
			continue
		}
		if n, ok := m.nodes[otherID]; ok && (groupID == "" || n.GroupID == groupID) {
			seen[otherID] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryDriver) GetNodeNeighbors(ctx context.Context, nodeUUID, groupID string) ([]types.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, adjacent := range m.adjacent(nodeUUID) {
		counts[adjacent]++
	}

	neighbors := make([]types.Neighbor, 0, len(counts))
	for uuid, count := range counts {
		neighbors = append(neighbors, types.Neighbor{NodeUUID: uuid, EdgeCount: count})
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].NodeUUID < neighbors[j].NodeUUID })
	return neighbors, nil
}

func (m *MemoryDriver) GetBetweenNodes(ctx context.Context, sourceNodeID, targetNodeID string) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Edge
	for _, e := range m.edges {
		if (e.SourceNodeID == sourceNodeID && e.TargetNodeID == targetNodeID) ||
			(e.SourceNodeID == targetNodeID && e.TargetNodeID == sourceNodeID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryDriver) SearchNodesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		node  *types.Node
		score float64
	}
	var candidates []scored
	for _, n := range m.nodes {
		if groupID != "" && n.GroupID != groupID {
			continue
		}
		vec := n.NameEmbedding
		if len(vec) == 0 {
			vec = n.Embedding
		}
		if len(vec) == 0 {
			continue
		}
		candidates = append(candidates, scored{n, cosineSimilarity(embedding, vec)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*types.Node, len(candidates))
	for i, c := range candidates {
		out[i] = c.node
	}
	return out, nil
}

func (m *MemoryDriver) SearchEdgesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		edge  *types.Edge
		score float64
	}
	var candidates []scored
	for _, e := range m.edges {
		if groupID != "" && e.GroupID != groupID {
			continue
		}
		if len(e.FactEmbedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{e, cosineSimilarity(embedding, e.FactEmbedding)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*types.Edge, len(candidates))
	for i, c := range candidates {
		out[i] = c.edge
	}
	return out, nil
}

func (m *MemoryDriver) SearchNodes(ctx context.Context, query, groupID string, options *SearchOptions) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []*types.Node
	for _, n := range m.nodes {
		if groupID != "" && n.GroupID != groupID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(n.Name), needle) &&
			!strings.Contains(strings.ToLower(n.Summary), needle) {
			continue
		}
		out = append(out, n)
	}
	out = limitNodes(out, options)
	return out, nil
}

func (m *MemoryDriver) SearchEdges(ctx context.Context, query, groupID string, options *SearchOptions) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []*types.Edge
	for _, e := range m.edges {
		if groupID != "" && e.GroupID != groupID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Fact), needle) {
			continue
		}
		out = append(out, e)
	}
	out = limitEdges(out, options)
	return out, nil
}

func (m *MemoryDriver) SearchNodesByVector(ctx context.Context, vector []float32, groupID string, options *VectorSearchOptions) ([]*types.Node, error) {
	limit := 0
	if options != nil {
		limit = options.Limit
	}
	return m.SearchNodesByEmbedding(ctx, vector, groupID, limit)
}

func (m *MemoryDriver) SearchEdgesByVector(ctx context.Context, vector []float32, groupID string, options *VectorSearchOptions) ([]*types.Edge, error) {
	limit := 0
	if options != nil {
		limit = options.Limit
	}
	return m.SearchEdgesByEmbedding(ctx, vector, groupID, limit)
}

func (m *MemoryDriver) GetNodesInTimeRange(ctx context.Context, start, end time.Time, groupID string) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Node
	for _, n := range m.nodes {
		if groupID != "" && n.GroupID != groupID {
			continue
		}
		if n.CreatedAt.Before(start) || n.CreatedAt.After(end) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *MemoryDriver) GetEdgesInTimeRange(ctx context.Context, start, end time.Time, groupID string) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Edge
	for _, e := range m.edges {
		if groupID != "" && e.GroupID != groupID {
			continue
		}
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryDriver) RetrieveEpisodes(ctx context.Context, referenceTime time.Time, groupIDs []string, limit int, episodeType *types.EpisodeType) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := make(map[string]bool, len(groupIDs))
	for _, g := range groupIDs {
		groups[g] = true
	}

	var out []*types.Node
	for _, n := range m.nodes {
		if n.Type != types.EpisodicNodeType {
			continue
		}
		if len(groups) > 0 && !groups[n.GroupID] {
			continue
		}
		if n.Reference.After(referenceTime) {
			continue
		}
		if episodeType != nil && n.EpisodeType != *episodeType {
			continue
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Reference.After(out[j].Reference) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryDriver) GetCommunities(ctx context.Context, groupID string, level int) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Node
	for _, n := range m.nodes {
		if n.Type != types.CommunityNodeType {
			continue
		}
		if groupID != "" && n.GroupID != groupID {
			continue
		}
		if n.Level != level {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *MemoryDriver) BuildCommunities(ctx context.Context, groupID string) error {
	return ErrUnsupportedQuery
}

func (m *MemoryDriver) GetExistingCommunity(ctx context.Context, entityUUID string) (*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.edges {
		if e.Type != types.CommunityEdgeType || e.TargetNodeID != entityUUID {
			continue
		}
		if community, ok := m.nodes[e.SourceNodeID]; ok {
			return community, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDriver) FindModalCommunity(ctx context.Context, entityUUID string) (*types.Node, error) {
	return m.GetExistingCommunity(context.Background(), entityUUID)
}

func (m *MemoryDriver) RemoveCommunities(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for uuid, n := range m.nodes {
		if n.Type == types.CommunityNodeType {
			delete(m.nodes, uuid)
		}
	}
	for uuid, e := range m.edges {
		if e.Type == types.CommunityEdgeType {
			delete(m.edges, uuid)
		}
	}
	return nil
}

func (m *MemoryDriver) CreateIndices(ctx context.Context) error { return nil }

func (m *MemoryDriver) GetStats(ctx context.Context, groupID string) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &GraphStats{
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
		LastUpdated: time.Now(),
	}
	for _, n := range m.nodes {
		if groupID != "" && n.GroupID != groupID {
			continue
		}
		stats.NodeCount++
		stats.NodesByType[string(n.Type)]++
		if n.Type == types.CommunityNodeType {
			stats.CommunityCount++
		}
	}
	for _, e := range m.edges {
		if groupID != "" && e.GroupID != groupID {
			continue
		}
		stats.EdgeCount++
		stats.EdgesByType[string(e.Type)]++
	}
	return stats, nil
}

func (m *MemoryDriver) ParseNodesFromRecords(records any) ([]*types.Node, error) {
	return nil, ErrUnsupportedQuery
}

func (m *MemoryDriver) GetEntityNodesByGroup(ctx context.Context, groupID string) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Node
	for _, n := range m.nodes {
		if n.Type == types.EntityNodeType && n.GroupID == groupID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryDriver) GetAllGroupIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, n := range m.nodes {
		seen[n.GroupID] = true
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func limitNodes(nodes []*types.Node, options *SearchOptions) []*types.Node {
	if options == nil || options.Limit <= 0 || len(nodes) <= options.Limit {
		return nodes
	}
	return nodes[:options.Limit]
}

func limitEdges(edges []*types.Edge, options *SearchOptions) []*types.Edge {
	if options == nil || options.Limit <= 0 || len(edges) <= options.Limit {
		return edges
	}
	return edges[:options.Limit]
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
