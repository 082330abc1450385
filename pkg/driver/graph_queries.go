package driver

import (
	"fmt"
	"strings"
)

// GraphProvider and constants are defined in driver.go

// GetRangeIndices returns the Neo4j range index creation statements. The
// in-memory backend (GraphProviderMemory) needs no index DDL at all, since
// MemoryDriver never executes Cypher.
func GetRangeIndices(provider GraphProvider) []string {
	if provider == GraphProviderMemory {
		return []string{}
	}

	return []string{
		"CREATE INDEX entity_uuid IF NOT EXISTS FOR (n:Entity) ON (n.uuid)",
		"CREATE INDEX episode_uuid IF NOT EXISTS FOR (n:Episodic) ON (n.uuid)",
		"CREATE INDEX community_uuid IF NOT EXISTS FOR (n:Community) ON (n.uuid)",
		"CREATE INDEX relation_uuid IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.uuid)",
		"CREATE INDEX mention_uuid IF NOT EXISTS FOR ()-[e:MENTIONS]-() ON (e.uuid)",
		"CREATE INDEX has_member_uuid IF NOT EXISTS FOR ()-[e:HAS_MEMBER]-() ON (e.uuid)",
		"CREATE INDEX entity_group_id IF NOT EXISTS FOR (n:Entity) ON (n.group_id)",
		"CREATE INDEX episode_group_id IF NOT EXISTS FOR (n:Episodic) ON (n.group_id)",
		"CREATE INDEX community_group_id IF NOT EXISTS FOR (n:Community) ON (n.group_id)",
		"CREATE INDEX relation_group_id IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.group_id)",
		"CREATE INDEX mention_group_id IF NOT EXISTS FOR ()-[e:MENTIONS]-() ON (e.group_id)",
		"CREATE INDEX name_entity_index IF NOT EXISTS FOR (n:Entity) ON (n.name)",
		"CREATE INDEX created_at_entity_index IF NOT EXISTS FOR (n:Entity) ON (n.created_at)",
		"CREATE INDEX created_at_episodic_index IF NOT EXISTS FOR (n:Episodic) ON (n.created_at)",
		"CREATE INDEX valid_at_episodic_index IF NOT EXISTS FOR (n:Episodic) ON (n.valid_at)",
		"CREATE INDEX name_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.name)",
		"CREATE INDEX created_at_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.created_at)",
		"CREATE INDEX expired_at_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.expired_at)",
		"CREATE INDEX valid_at_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.valid_at)",
		"CREATE INDEX invalid_at_edge_index IF NOT EXISTS FOR ()-[e:RELATES_TO]-() ON (e.invalid_at)",
	}
}

// GetFulltextIndices returns the Neo4j fulltext index creation statements.
func GetFulltextIndices(provider GraphProvider) []string {
	if provider == GraphProviderMemory {
		return []string{}
	}

	return []string{
		`CREATE FULLTEXT INDEX episode_content IF NOT EXISTS
FOR (e:Episodic) ON EACH [e.content, e.source, e.source_description, e.group_id]`,
		`CREATE FULLTEXT INDEX node_name_and_summary IF NOT EXISTS
FOR (n:Entity) ON EACH [n.name, n.summary, n.group_id]`,
		`CREATE FULLTEXT INDEX community_name IF NOT EXISTS
FOR (n:Community) ON EACH [n.name, n.group_id]`,
		`CREATE FULLTEXT INDEX edge_name_and_fact IF NOT EXISTS
FOR ()-[e:RELATES_TO]-() ON EACH [e.name, e.fact, e.group_id]`,
	}
}

// GetNodesQuery returns the Neo4j fulltext search query for nodes. The query
// parameter is escaped to prevent query injection attacks.
func GetNodesQuery(indexName, query string, limit int, provider GraphProvider) string {
	escapedQuery := fmt.Sprintf(`"%s"`, EscapeQueryString(query))
	return fmt.Sprintf(`CALL db.index.fulltext.queryNodes("%s", %s, {limit: $limit})`, indexName, escapedQuery)
}

// GetRelationshipsQuery returns the Neo4j fulltext search query for
// relationships. Note: this function uses a parameterized query ($query) -
// the caller is responsible for escaping the query value using
// EscapeQueryString before passing it as a parameter.
func GetRelationshipsQuery(indexName string, limit int, provider GraphProvider) string {
	return fmt.Sprintf(`CALL db.index.fulltext.queryRelationships("%s", $query, {limit: $limit})`, indexName)
}

// GetVectorCosineFuncQuery returns the Neo4j cosine similarity function call.
func GetVectorCosineFuncQuery(vec1, vec2 string, provider GraphProvider) string {
	return fmt.Sprintf("vector.similarity.cosine(%s, %s)", vec1, vec2)
}

// QueryBuilder builds provider-aware queries. chrongraph only ever speaks
// Cypher against Neo4j (MemoryDriver never executes raw queries), but the
// provider field is retained so callers can assert which backend a session
// is attached to.
type QueryBuilder struct {
	provider GraphProvider
}

// NewQueryBuilder creates a new query builder for the specified provider.
func NewQueryBuilder(provider GraphProvider) *QueryBuilder {
	return &QueryBuilder{
		provider: provider,
	}
}

// BuildFulltextNodeQuery builds a fulltext search query for nodes
func (qb *QueryBuilder) BuildFulltextNodeQuery(indexName, searchTerm string, limit int) string {
	return GetNodesQuery(indexName, searchTerm, limit, qb.provider)
}

// BuildFulltextRelationshipQuery builds a fulltext search query for relationships
func (qb *QueryBuilder) BuildFulltextRelationshipQuery(indexName string, limit int) string {
	return GetRelationshipsQuery(indexName, limit, qb.provider)
}

// BuildCosineSimilarityQuery builds a cosine similarity query
func (qb *QueryBuilder) BuildCosineSimilarityQuery(vec1, vec2 string) string {
	return GetVectorCosineFuncQuery(vec1, vec2, qb.provider)
}

// GetRangeIndexQueries returns all range index creation queries for this provider
func (qb *QueryBuilder) GetRangeIndexQueries() []string {
	return GetRangeIndices(qb.provider)
}

// GetFulltextIndexQueries returns all fulltext index creation queries for this provider
func (qb *QueryBuilder) GetFulltextIndexQueries() []string {
	return GetFulltextIndices(qb.provider)
}

// GetProvider returns the current graph provider
func (qb *QueryBuilder) GetProvider() GraphProvider {
	return qb.provider
}

// SetProvider sets the graph provider
func (qb *QueryBuilder) SetProvider(provider GraphProvider) {
	qb.provider = provider
}

// luceneReplacer is a package-level replacer for escaping special characters
// in fulltext search queries. Defined at package level to avoid recreation
// on each call to EscapeQueryString, improving performance.
var luceneReplacer = strings.NewReplacer(
	`"`, `\"`,
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`|`, `\|`,
	`&`, `\&`,
)

// EscapeQueryString escapes special characters in search queries
func EscapeQueryString(query string) string {
	return luceneReplacer.Replace(query)
}

// BuildParameterizedQuery builds a query with parameter placeholders
func BuildParameterizedQuery(query string, params map[string]interface{}) (string, map[string]interface{}) {
	// Clean parameters by removing internal driver parameters
	cleanParams := make(map[string]interface{})
	for key, value := range params {
		if !strings.HasSuffix(key, "_") && value != nil {
			cleanParams[key] = value
		}
	}

	return query, cleanParams
}
