// Package search implements chrongraph's hybrid retrieval over the temporal
// knowledge graph.
//
// This package combines vector similarity search with graph traversal to
// find relevant nodes and edges, fusing multiple candidate lists with
// reciprocal rank fusion (RRF) before an optional reranking pass.
//
// # Search Methods
//
// The Searcher supports multiple search methods:
//   - Vector search: Find nodes/edges by embedding similarity
//   - Fulltext search: Find nodes/edges by keyword matching
//   - Hybrid search: Combine vector and fulltext results via RRF
//   - Graph traversal: Expand results by following relationships (BFS, shortest/all paths)
//
// # Usage
//
//	searcher := search.NewSearcher(driver, embedder, nlpClient)
//
//	config := &search.SearchConfig{
//	    NodeConfig: &search.NodeSearchConfig{
//	        SearchMethods: []search.SearchMethod{search.CosineSimilarity, search.BM25},
//	        Reranker:      search.RRFRerankType,
//	    },
//	    Limit:    10,
//	    MinScore: 0.7,
//	}
//
//	results, err := searcher.Search(ctx, "query text", config, &search.SearchFilters{}, groupID)
//
// # Reranking
//
// Search results can be optionally reranked using cross-encoder models, or
// diversified with maximal marginal relevance (MMR) to reduce near-duplicate
// results. The reranker is chosen in the per-type search config, for example
// NodeSearchConfig.Reranker.
//
// # Filtering
//
// Results can be filtered by:
//   - GroupIDs: Limit to specific groups
//   - NodeTypes: Filter by node type (entity, episode, community)
//   - TimeRange: Filter by temporal validity
//
// # Internal Type Design
//
// This package defines its own SearchConfig, NodeSearchConfig, EdgeSearchConfig,
// and SearchFilters types that are separate from pkg/types. This is intentional:
//
//   - pkg/types provides a simplified public API with string-based configuration
//   - pkg/search provides a richer internal implementation with typed enums
//   - Conversion happens in retrieval.go when calling the Searcher
//
// This separation allows the public API to remain stable while the internal
// implementation can evolve. New search methods and rerankers can be added
// internally without changing the public interface.
package search
