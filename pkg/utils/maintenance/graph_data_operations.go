package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relicore/chrongraph/pkg/driver"
	"github.com/relicore/chrongraph/pkg/types"
)

const (
	EpisodeWindowLen = 3
)

// GraphDataOperations provides graph data maintenance operations
type GraphDataOperations struct {
	driver driver.GraphDriver
	logger *slog.Logger
}

// NewGraphDataOperations creates a new GraphDataOperations instance
func NewGraphDataOperations(driver driver.GraphDriver) *GraphDataOperations {
	return &GraphDataOperations{
		driver: driver,
		logger: slog.Default(),
	}
}

// SetLogger sets a custom logger for the GraphDataOperations
func (gdo *GraphDataOperations) SetLogger(logger *slog.Logger) {
	gdo.logger = logger
}

// BuildIndicesAndConstraints creates necessary indices and constraints for the graph database
func (gdo *GraphDataOperations) BuildIndicesAndConstraints(ctx context.Context, deleteExisting bool) error {
	gdo.logger.Info("Building indices and constraints", "delete_existing", deleteExisting)

	// For now, use the driver's CreateIndices method which should handle the database-specific logic
	return gdo.driver.CreateIndices(ctx)
}

// RetrieveEpisodes retrieves the last n episodic nodes from the graph
func (gdo *GraphDataOperations) RetrieveEpisodes(ctx context.Context, referenceTime time.Time, lastN int, groupIDs []string, source string) ([]*types.Node, error) {
	if lastN <= 0 {
		lastN = EpisodeWindowLen
	}

	gdo.logger.Debug("Retrieving episodes", "last_n", lastN, "reference_time", referenceTime, "group_ids", groupIDs, "source", source)

	// Use the driver's temporal operations to get nodes in time range
	// We'll get all nodes up to the reference time and then filter
	startTime := time.Time{} // Beginning of time
	nodes, err := gdo.driver.GetNodesInTimeRange(ctx, startTime, referenceTime, "")
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve nodes in time range: %w", err)
	}

	// Filter for episodic nodes
	var episodic []*types.Node
	for _, node := range nodes {
		if node.Type == types.EpisodicNodeType {
			// Apply group ID filter if specified
			if len(groupIDs) > 0 {
				found := false
				for _, groupID := range groupIDs {
					if node.GroupID == groupID {
						found = true
						break
					}
				}
				if !found {
					continue
				}
			}

			// Apply source filter if specified
			if source != "" && string(node.EpisodeType) != source {
				continue
			}

			episodic = append(episodic, node)
		}
	}

	// Sort by ValidFrom time (most recent first) and limit
	// This is a simple bubble sort for small arrays
	for i := 0; i < len(episodic)-1; i++ {
		for j := 0; j < len(episodic)-i-1; j++ {
			if episodic[j].ValidFrom.Before(episodic[j+1].ValidFrom) {
				episodic[j], episodic[j+1] = episodic[j+1], episodic[j]
			}
		}
	}

	// Take the last N episodes
	if len(episodic) > lastN {
		episodic = episodic[:lastN]
	}

	// Reverse to return in chronological order
	for i, j := 0, len(episodic)-1; i < j; i, j = i+1, j-1 {
		episodic[i], episodic[j] = episodic[j], episodic[i]
	}

	gdo.logger.Debug("Retrieved episodes", "count", len(episodic))
	return episodic, nil
}

// ClearData removes all data from the graph or specific group IDs
func (gdo *GraphDataOperations) ClearData(ctx context.Context, groupIDs []string) error {
	gdo.logger.Info("Clearing data", "group_ids", groupIDs)

	if len(groupIDs) == 0 {
		// Clear all data - this is a dangerous operation, so we'll be cautious
		gdo.logger.Warn("Clearing all data from the graph")

		// Get all nodes and edges and delete them
		// This is a simplified approach - in production you might want a more efficient method
		allNodes, err := gdo.driver.SearchNodes(ctx, "", "", &driver.SearchOptions{Limit: 10000})
		if err != nil {
			return fmt.Errorf("failed to get all nodes: %w", err)
		}

		for _, node := range allNodes {
			if err := gdo.driver.DeleteNode(ctx, node.Uuid, node.GroupID); err != nil {
				gdo.logger.Warn("Failed to delete node", "node_id", node.Uuid, "error", err)
			}
		}

		allEdges, err := gdo.driver.SearchEdges(ctx, "", "", &driver.SearchOptions{Limit: 10000})
		if err != nil {
			return fmt.Errorf("failed to get all edges: %w", err)
		}

		for _, edge := range allEdges {
			if err := gdo.driver.DeleteEdge(ctx, edge.Uuid, edge.GroupID); err != nil {
				gdo.logger.Warn("Failed to delete edge", "edge_id", edge.Uuid, "error", err)
			}
		}
	} else {
		// Clear data for specific group IDs
		for _, groupID := range groupIDs {
			// Get all nodes for this group
			nodes, err := gdo.driver.SearchNodes(ctx, "", groupID, &driver.SearchOptions{Limit: 10000})
			if err != nil {
				gdo.logger.Warn("Failed to get nodes for group", "group_id", groupID, "error", err)
				continue
			}

			for _, node := range nodes {
				if err := gdo.driver.DeleteNode(ctx, node.Uuid, groupID); err != nil {
					gdo.logger.Warn("Failed to delete node", "node_id", node.Uuid, "error", err)
				}
			}

			// Get all edges for this group
			edges, err := gdo.driver.SearchEdges(ctx, "", groupID, &driver.SearchOptions{Limit: 10000})
			if err != nil {
				gdo.logger.Warn("Failed to get edges for group", "group_id", groupID, "error", err)
				continue
			}

			for _, edge := range edges {
				if err := gdo.driver.DeleteEdge(ctx, edge.Uuid, groupID); err != nil {
					gdo.logger.Warn("Failed to delete edge", "edge_id", edge.Uuid, "error", err)
				}
			}
		}
	}

	gdo.logger.Info("Data clearing completed", "group_ids", groupIDs)
	return nil
}

// GetStats returns basic statistics about the graph
func (gdo *GraphDataOperations) GetStats(ctx context.Context, groupID string) (*driver.GraphStats, error) {
	return gdo.driver.GetStats(ctx, groupID)
}
