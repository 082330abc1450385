package driver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/relicore/chrongraph/pkg/types"
)

func TestGraphProvider(t *testing.T) {
	providers := []GraphProvider{
		GraphProviderNeo4j,
		GraphProviderMemory,
	}

	for _, provider := range providers {
		t.Run(string(provider), func(t *testing.T) {
			if string(provider) == "" {
				t.Errorf("Provider %s should not be empty", provider)
			}
		})
	}
}

func TestGetRangeIndices(t *testing.T) {
	tests := []struct {
		provider GraphProvider
		expected int
	}{
		{GraphProviderNeo4j, 20},
		{GraphProviderMemory, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			indices := GetRangeIndices(tt.provider)
			if len(indices) != tt.expected {
				t.Errorf("GetRangeIndices(%s) returned %d indices, expected %d",
					tt.provider, len(indices), tt.expected)
			}

			for _, index := range indices {
				if !strings.Contains(index, "CREATE INDEX") {
					t.Errorf("Index should contain 'CREATE INDEX': %s", index)
				}
			}
		})
	}
}

func TestGetFulltextIndices(t *testing.T) {
	tests := []struct {
		provider GraphProvider
		expected int
	}{
		{GraphProviderNeo4j, 4},
		{GraphProviderMemory, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			indices := GetFulltextIndices(tt.provider)
			if len(indices) != tt.expected {
				t.Errorf("GetFulltextIndices(%s) returned %d indices, expected %d",
					tt.provider, len(indices), tt.expected)
			}

			for _, index := range indices {
				if !strings.Contains(index, "FULLTEXT INDEX") {
					t.Errorf("Neo4j index should contain 'FULLTEXT INDEX': %s", index)
				}
			}
		})
	}
}

func TestGetNodesQuery(t *testing.T) {
	query := GetNodesQuery("node_name_and_summary", "test", 10, GraphProviderNeo4j)
	if !strings.Contains(query, "db.index.fulltext.queryNodes") {
		t.Errorf("Query should contain 'db.index.fulltext.queryNodes': %s", query)
	}
}

func TestGetVectorCosineFuncQuery(t *testing.T) {
	query := GetVectorCosineFuncQuery("n.embedding", "m.embedding", GraphProviderNeo4j)
	if !strings.Contains(query, "vector.similarity.cosine") {
		t.Errorf("Query should contain 'vector.similarity.cosine': %s", query)
	}
}

func TestQueryBuilder(t *testing.T) {
	builder := NewQueryBuilder(GraphProviderNeo4j)

	if builder.GetProvider() != GraphProviderNeo4j {
		t.Errorf("Expected provider to be Neo4j, got %s", builder.GetProvider())
	}

	builder.SetProvider(GraphProviderMemory)
	if builder.GetProvider() != GraphProviderMemory {
		t.Errorf("Expected provider to be memory, got %s", builder.GetProvider())
	}
	builder.SetProvider(GraphProviderNeo4j)

	nodeQuery := builder.BuildFulltextNodeQuery("node_name_and_summary", "test", 10)
	if !strings.Contains(nodeQuery, "db.index.fulltext.queryNodes") {
		t.Errorf("node query should contain 'db.index.fulltext.queryNodes': %s", nodeQuery)
	}

	relQuery := builder.BuildFulltextRelationshipQuery("edge_name_and_fact", 10)
	if !strings.Contains(relQuery, "db.index.fulltext.queryRelationships") {
		t.Errorf("relationship query should contain 'db.index.fulltext.queryRelationships': %s", relQuery)
	}

	cosineQuery := builder.BuildCosineSimilarityQuery("n.embedding", "m.embedding")
	if !strings.Contains(cosineQuery, "vector.similarity.cosine") {
		t.Errorf("cosine query should contain 'vector.similarity.cosine': %s", cosineQuery)
	}

	rangeIndices := builder.GetRangeIndexQueries()
	if len(rangeIndices) != 20 {
		t.Errorf("Neo4j should have 20 range indices, got %d", len(rangeIndices))
	}

	fulltextIndices := builder.GetFulltextIndexQueries()
	if len(fulltextIndices) != 4 {
		t.Errorf("Should have 4 fulltext indices, got %d", len(fulltextIndices))
	}
}

func TestEscapeQueryString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with spaces", "with spaces"},
		{`with "quotes"`, `with \"quotes\"`},
		{"with + and -", `with \+ and \-`},
		{"with (parens)", `with \(parens\)`},
		{"with [brackets]", `with \[brackets\]`},
		{"with {braces}", `with \{braces\}`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := EscapeQueryString(tt.input)
			if result != tt.expected {
				t.Errorf("EscapeQueryString(%s) = %s, expected %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetNodesQueryEscaping(t *testing.T) {
	specialCharQueries := []struct {
		name  string
		query string
	}{
		{"quotes in query", `test "injection"`},
		{"special chars", `test + - ! ( ) { } [ ] ^ ~ * ? : | &`},
		{"backslash", `test\path`},
		{"injection attempt", `test") MATCH (n) DELETE n //`},
	}

	for _, tc := range specialCharQueries {
		t.Run(tc.name, func(t *testing.T) {
			result := GetNodesQuery("node_name_and_summary", tc.query, 10, GraphProviderNeo4j)

			if strings.Contains(result, tc.query) && strings.ContainsAny(tc.query, `"+-!(){}[]^~*?:|&\`) {
				t.Errorf("Query should have escaped special characters, got: %s", result)
			}

			if strings.Contains(tc.query, `"`) && !strings.Contains(result, `\"`) {
				t.Errorf("Double quotes should be escaped in query: %s", result)
			}
		})
	}
}

func TestBuildParameterizedQuery(t *testing.T) {
	query := "MATCH (n) WHERE n.uuid = $id RETURN n"
	params := map[string]interface{}{
		"id":        "test-id",
		"database_": "neo4j", // Should be filtered out
		"routing_":  "write", // Should be filtered out
		"valid":     "value",
		"nil_value": nil, // Should be filtered out
	}

	resultQuery, resultParams := BuildParameterizedQuery(query, params)

	if resultQuery != query {
		t.Errorf("Query should remain unchanged")
	}

	expectedParams := map[string]interface{}{
		"id":    "test-id",
		"valid": "value",
	}

	if len(resultParams) != len(expectedParams) {
		t.Errorf("Expected %d parameters, got %d", len(expectedParams), len(resultParams))
	}

	for key, value := range expectedParams {
		if resultParams[key] != value {
			t.Errorf("Expected param %s = %v, got %v", key, value, resultParams[key])
		}
	}
}

func TestEntityEdgeIntegrationMemoryDriver(t *testing.T) {
	ctx := context.Background()
	groupID := "test-group"

	node1 := &types.Node{
		Uuid:      "entity-1",
		Name:      "Alice",
		Type:      types.EntityNodeType,
		GroupID:   groupID,
		Summary:   "A software engineer who loves Go programming",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		ValidFrom: time.Now(),
	}

	node2 := &types.Node{
		Uuid:      "entity-2",
		Name:      "Bob",
		Type:      types.EntityNodeType,
		GroupID:   groupID,
		Summary:   "A data scientist working with Python",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		ValidFrom: time.Now(),
	}

	edge := types.NewEntityEdge(
		"edge-1",
		"entity-1",
		"entity-2",
		groupID,
		"WORKS_WITH",
		types.EntityEdgeType,
	)
	edge.Fact = "Alice works with Bob on the ML project"
	edge.CreatedAt = time.Now()
	edge.ValidFrom = time.Now()

	d := NewMemoryDriver()
	defer d.Close()

	if err := d.CreateIndices(ctx); err != nil {
		t.Fatalf("Failed to create indices: %v", err)
	}

	if err := d.UpsertNode(ctx, node1); err != nil {
		t.Fatalf("Failed to upsert node1: %v", err)
	}
	if err := d.UpsertNode(ctx, node2); err != nil {
		t.Fatalf("Failed to upsert node2: %v", err)
	}
	if err := d.UpsertEdge(ctx, edge); err != nil {
		t.Fatalf("Failed to upsert edge: %v", err)
	}

	retrievedNode1, err := d.GetNode(ctx, "entity-1", groupID)
	if err != nil {
		t.Fatalf("Failed to retrieve node1: %v", err)
	}
	if retrievedNode1.Uuid != node1.Uuid {
		t.Errorf("Node1 UUID mismatch: got %s, want %s", retrievedNode1.Uuid, node1.Uuid)
	}
	if retrievedNode1.Name != node1.Name {
		t.Errorf("Node1 Name mismatch: got %s, want %s", retrievedNode1.Name, node1.Name)
	}
	if retrievedNode1.Summary != node1.Summary {
		t.Errorf("Node1 Summary mismatch: got %s, want %s", retrievedNode1.Summary, node1.Summary)
	}

	retrievedNode2, err := d.GetNode(ctx, "entity-2", groupID)
	if err != nil {
		t.Fatalf("Failed to retrieve node2: %v", err)
	}
	if retrievedNode2.Uuid != node2.Uuid {
		t.Errorf("Node2 UUID mismatch: got %s, want %s", retrievedNode2.Uuid, node2.Uuid)
	}
	if retrievedNode2.Name != node2.Name {
		t.Errorf("Node2 Name mismatch: got %s, want %s", retrievedNode2.Name, node2.Name)
	}

	retrievedEdge, err := d.GetEdge(ctx, "edge-1", groupID)
	if err != nil {
		t.Fatalf("Failed to retrieve edge: %v", err)
	}
	if retrievedEdge.Uuid != edge.Uuid {
		t.Errorf("Edge UUID mismatch: got %s, want %s", retrievedEdge.Uuid, edge.Uuid)
	}
	if retrievedEdge.SourceID != edge.SourceID {
		t.Errorf("Edge SourceID mismatch: got %s, want %s", retrievedEdge.SourceID, edge.SourceID)
	}
	if retrievedEdge.TargetID != edge.TargetID {
		t.Errorf("Edge TargetID mismatch: got %s, want %s", retrievedEdge.TargetID, edge.TargetID)
	}
	if retrievedEdge.Fact != edge.Fact {
		t.Errorf("Edge Fact mismatch: got %s, want %s", retrievedEdge.Fact, edge.Fact)
	}
}
