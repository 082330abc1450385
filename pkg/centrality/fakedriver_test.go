package centrality

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/relicore/chrongraph/pkg/driver"
	"github.com/relicore/chrongraph/pkg/types"
)

// fakeQueryDriver wraps an in-memory driver and answers the specific raw
// Cypher this package issues (node/edge listing for adjacency loading,
// property SET/REMOVE for storage, schema-version bookkeeping) by matching
// on recognizable query fragments rather than parsing Cypher. It exists only
// for this package's tests.
type fakeQueryDriver struct {
	*driver.MemoryDriver

	mu           sync.Mutex
	edges        []fakeEdge
	schemaRows   []map[string]interface{}
	nodeMetrics  map[string]map[string]interface{}
}

type fakeEdge struct {
	source, target, groupID string
}

func newFakeQueryDriver() *fakeQueryDriver {
	return &fakeQueryDriver{
		MemoryDriver: driver.NewMemoryDriver(),
		nodeMetrics:  map[string]map[string]interface{}{},
	}
}

func (f *fakeQueryDriver) addEdge(ctx context.Context, id, source, target, groupID string) error {
	if err := f.MemoryDriver.UpsertEdge(ctx, &types.Edge{
		BaseEdge: types.BaseEdge{Uuid: id, GroupID: groupID, SourceNodeID: source, TargetNodeID: target},
		Type:     types.EntityEdgeType,
	}); err != nil {
		return err
	}
	f.mu.Lock()
	f.edges = append(f.edges, fakeEdge{source: source, target: target, groupID: groupID})
	f.mu.Unlock()
	return nil
}

func (f *fakeQueryDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (interface{}, interface{}, interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	groupID, _ := params["group_id"].(string)

	switch {
	case strings.Contains(query, "RETURN n.uuid AS uuid") && strings.Contains(query, "MATCH (n)"):
		nodes, err := f.MemoryDriver.GetEntityNodesByGroup(ctx, groupID)
		if err != nil {
			return nil, nil, nil, err
		}
		rows := make([]map[string]interface{}, 0, len(nodes))
		for _, n := range nodes {
			rows = append(rows, map[string]interface{}{"uuid": n.Uuid})
		}
		return rows, nil, nil, nil

	case strings.Contains(query, "RETURN s.uuid AS source, t.uuid AS target"):
		rows := make([]map[string]interface{}, 0, len(f.edges))
		for _, e := range f.edges {
			if groupID != "" && e.groupID != groupID {
				continue
			}
			rows = append(rows, map[string]interface{}{"source": e.source, "target": e.target})
		}
		return rows, nil, nil, nil

	case strings.Contains(query, "SET n.pagerank_centrality"):
		uuid, _ := params["uuid"].(string)
		f.nodeMetrics[uuid] = params
		return []map[string]interface{}{}, nil, nil, nil

	case strings.Contains(query, "REMOVE n.pagerank_centrality"):
		transactionID, _ := params["transaction_id"].(string)
		for uuid, m := range f.nodeMetrics {
			if m["transaction_id"] == transactionID {
				delete(f.nodeMetrics, uuid)
			}
		}
		return []map[string]interface{}{}, nil, nil, nil

	case strings.Contains(query, "CentralitySchemaVersion") && strings.Contains(query, "RETURN s.version"):
		if len(f.schemaRows) == 0 {
			return []map[string]interface{}{}, nil, nil, nil
		}
		return []map[string]interface{}{f.schemaRows[len(f.schemaRows)-1]}, nil, nil, nil

	case strings.Contains(query, "CREATE (s:CentralitySchemaVersion"):
		version, _ := params["version"].(string)
		f.schemaRows = append(f.schemaRows, map[string]interface{}{"version": version, "created_at": time.Now()})
		return []map[string]interface{}{}, nil, nil, nil

	case strings.Contains(query, "CREATE INDEX"):
		return []map[string]interface{}{}, nil, nil, nil

	case strings.Contains(query, "RETURN count(n) AS count"):
		return []map[string]interface{}{{"count": len(f.nodeMetrics)}}, nil, nil, nil

	case strings.Contains(query, "n.centrality_pagerank AS pagerank"):
		rows := make([]map[string]interface{}, 0, len(f.nodeMetrics))
		for uuid, m := range f.nodeMetrics {
			row := map[string]interface{}{"uuid": uuid}
			for _, key := range []string{"pagerank", "degree", "betweenness", "eigenvector", "importance"} {
				if v, ok := m[key]; ok {
					row[key] = v
				}
			}
			rows = append(rows, row)
		}
		return rows, nil, nil, nil
	}

	return nil, nil, nil, driver.ErrUnsupportedQuery
}

var _ driver.GraphDriver = (*fakeQueryDriver)(nil)
