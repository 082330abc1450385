package chrongraph

import (
	"context"

	"github.com/relicore/chrongraph/pkg/modeler"
	"github.com/relicore/chrongraph/pkg/types"
)

// This file defines focused interfaces that follow the Interface Segregation Principle.
// The main Service interface is composed from these smaller interfaces for backward
// compatibility. Consumers should depend on the smallest interface that meets their needs.

// EpisodeManager provides operations for managing episodes in the knowledge graph.
// Use this interface when you only need to add, remove, or retrieve episodes.
type EpisodeManager interface {
	// Add processes and adds new episodes to the knowledge graph.
	// Episodes can be text, conversations, or any temporal data.
	// Options parameter is optional and can be nil for default behavior.
	Add(ctx context.Context, episodes []types.Episode, options *AddEpisodeOptions) (*types.AddBulkEpisodeResults, error)

	// AddEpisode processes and adds a single episode to the knowledge graph.
	AddEpisode(ctx context.Context, episode types.Episode, options *AddEpisodeOptions) (*types.AddEpisodeResults, error)

	// RemoveEpisode removes an episode and its associated nodes and edges from the knowledge graph.
	RemoveEpisode(ctx context.Context, episodeUUID string) error

	// GetEpisodes retrieves recent episodes from the knowledge graph.
	GetEpisodes(ctx context.Context, groupID string, limit int) ([]*types.Node, error)

	// GetNodesAndEdgesByEpisode retrieves all nodes and edges associated with a specific episode.
	GetNodesAndEdgesByEpisode(ctx context.Context, episodeUUID string) ([]*types.Node, []*types.Edge, error)
}

// GraphQuerier provides read-only query operations on the knowledge graph.
// Use this interface when you only need to search or retrieve data without modifications.
type GraphQuerier interface {
	// Search performs hybrid search across the knowledge graph combining
	// semantic embeddings, keyword search, and graph traversal.
	Search(ctx context.Context, query string, config *types.SearchConfig) (*types.SearchResults, error)

	// GetNode retrieves a specific node from the knowledge graph.
	GetNode(ctx context.Context, nodeID string) (*types.Node, error)

	// GetEdge retrieves a specific edge from the knowledge graph.
	GetEdge(ctx context.Context, edgeID string) (*types.Edge, error)
}

// GraphMutator provides write operations on the knowledge graph.
// Use this interface when you need direct manipulation of the graph structure.
type GraphMutator interface {
	// AddTriplet adds a triplet (subject-predicate-object) directly to the knowledge graph.
	AddTriplet(ctx context.Context, sourceNode *types.Node, edge *types.Edge, targetNode *types.Node, createEmbeddings bool) (*types.AddTripletResults, error)

	// ClearGraph removes all nodes and edges from the knowledge graph for a specific group.
	ClearGraph(ctx context.Context, groupID string) error

	// UpdateCommunities updates community assignments after changes to the graph.
	UpdateCommunities(ctx context.Context, episodeUUID string, groupID string) ([]*types.Node, []*types.Edge, error)
}

// GraphAdmin provides administrative operations for the knowledge graph.
// Use this interface for maintenance and configuration tasks.
type GraphAdmin interface {
	// CreateIndices creates database indices and constraints for optimal performance.
	CreateIndices(ctx context.Context) error

	// ValidateModeler tests a GraphModeler implementation with sample data.
	ValidateModeler(ctx context.Context, gm modeler.GraphModeler) (*modeler.ModelerValidationResult, error)

	// Close closes all connections and cleans up resources.
	Close(ctx context.Context) error
}

// Service composes the focused interfaces above into the full surface area
// implemented by Client. Consumers that don't need the whole surface should
// depend on one of the narrower interfaces instead.
type Service interface {
	EpisodeManager
	GraphQuerier
	GraphMutator
	GraphAdmin
}

var _ Service = (*Client)(nil)
