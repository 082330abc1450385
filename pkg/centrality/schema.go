package centrality

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/relicore/chrongraph/pkg/driver"
)

// SchemaVersion identifies a semver'd revision of the centrality metric set.
type SchemaVersion string

const (
	SchemaV1_0_0 SchemaVersion = "1.0.0" // pagerank, degree, betweenness
	SchemaV1_1_0 SchemaVersion = "1.1.0" // + importance composite
	SchemaV1_2_0 SchemaVersion = "1.2.0" // + eigenvector
	SchemaV2_0_0 SchemaVersion = "2.0.0" // breaking: normalized metric format
	SchemaV2_1_0 SchemaVersion = "2.1.0" // + closeness
	SchemaV2_2_0 SchemaVersion = "2.2.0" // + harmonic
)

// LatestSchemaVersion is the newest known schema version.
const LatestSchemaVersion = SchemaV2_2_0

var schemaOrder = []SchemaVersion{SchemaV1_0_0, SchemaV1_1_0, SchemaV1_2_0, SchemaV2_0_0, SchemaV2_1_0, SchemaV2_2_0}

// Major returns the version's leading semver component.
func (v SchemaVersion) Major() int {
	parts := strings.SplitN(string(v), ".", 2)
	n, _ := strconv.Atoi(parts[0])
	return n
}

// CompatibleWith reports whether v and other share a major version.
func (v SchemaVersion) CompatibleWith(other SchemaVersion) bool {
	return v.Major() == other.Major()
}

// ParseSchemaVersion validates a version string against the known set.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	for _, v := range schemaOrder {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown centrality schema version %q", s)
}

// MetricDefinition describes one centrality metric's shape and valid range.
type MetricDefinition struct {
	Name          string
	DisplayName   string
	Description   string
	DataType      string // "float", "int", or "normalized"
	RangeMin      *float64
	RangeMax      *float64
	Normalize     bool
	IntroducedIn  SchemaVersion
	DeprecatedIn  SchemaVersion // empty if not deprecated
}

func floatPtr(f float64) *float64 { return &f }

// Schema is the versioned set of metrics valid at a particular SchemaVersion.
type Schema struct {
	Version SchemaVersion
	Metrics map[string]MetricDefinition
}

// GetSchema returns the metric set defined at version.
func GetSchema(version SchemaVersion) Schema {
	switch version {
	case SchemaV1_0_0:
		return schemaV1_0_0()
	case SchemaV1_1_0:
		return schemaV1_1_0()
	case SchemaV1_2_0:
		return schemaV1_2_0()
	case SchemaV2_0_0:
		return schemaV2_0_0()
	case SchemaV2_1_0:
		return schemaV2_1_0()
	case SchemaV2_2_0:
		return schemaV2_2_0()
	default:
		return schemaV1_0_0()
	}
}

func schemaV1_0_0() Schema {
	return Schema{
		Version: SchemaV1_0_0,
		Metrics: map[string]MetricDefinition{
			"pagerank": {
				Name: "pagerank", DisplayName: "PageRank",
				Description: "Importance based on incoming edges",
				DataType:    "float", RangeMin: floatPtr(0), RangeMax: floatPtr(1),
				IntroducedIn: SchemaV1_0_0,
			},
			"degree": {
				Name: "degree", DisplayName: "Degree Centrality",
				Description: "Number of incident edges",
				DataType:    "int", RangeMin: floatPtr(0),
				IntroducedIn: SchemaV1_0_0,
			},
			"betweenness": {
				Name: "betweenness", DisplayName: "Betweenness Centrality",
				Description: "Frequency on shortest paths",
				DataType:    "float", RangeMin: floatPtr(0), RangeMax: floatPtr(1),
				IntroducedIn: SchemaV1_0_0,
			},
		},
	}
}

func schemaV1_1_0() Schema {
	s := schemaV1_0_0()
	s.Version = SchemaV1_1_0
	s.Metrics["importance"] = MetricDefinition{
		Name: "importance", DisplayName: "Importance Score",
		Description: "Composite importance metric",
		DataType:    "float", RangeMin: floatPtr(0),
		IntroducedIn: SchemaV1_1_0,
	}
	return s
}

func schemaV1_2_0() Schema {
	s := schemaV1_1_0()
	s.Version = SchemaV1_2_0
	s.Metrics["eigenvector"] = MetricDefinition{
		Name: "eigenvector", DisplayName: "Eigenvector Centrality",
		Description: "Importance of a node's connections",
		DataType:    "float", RangeMin: floatPtr(0), RangeMax: floatPtr(1),
		IntroducedIn: SchemaV1_2_0,
	}
	return s
}

func schemaV2_0_0() Schema {
	return Schema{
		Version: SchemaV2_0_0,
		Metrics: map[string]MetricDefinition{
			"pagerank":    normalizedMetric("pagerank", "PageRank", "Normalized PageRank score"),
			"degree":      normalizedMetric("degree", "Degree Centrality", "Normalized degree centrality"),
			"betweenness": normalizedMetric("betweenness", "Betweenness Centrality", "Normalized betweenness"),
			"eigenvector": normalizedMetric("eigenvector", "Eigenvector Centrality", "Normalized eigenvector"),
		},
	}
}

func normalizedMetric(name, display, desc string) MetricDefinition {
	return MetricDefinition{
		Name: name, DisplayName: display, Description: desc,
		DataType: "normalized", RangeMin: floatPtr(0), RangeMax: floatPtr(1),
		Normalize: true, IntroducedIn: SchemaV2_0_0,
	}
}

func schemaV2_1_0() Schema {
	s := schemaV2_0_0()
	s.Version = SchemaV2_1_0
	m := normalizedMetric("closeness", "Closeness Centrality", "Average distance to all nodes")
	m.IntroducedIn = SchemaV2_1_0
	s.Metrics["closeness"] = m
	return s
}

func schemaV2_2_0() Schema {
	s := schemaV2_1_0()
	s.Version = SchemaV2_2_0
	m := normalizedMetric("harmonic", "Harmonic Centrality", "Sum of reciprocal distances")
	m.IntroducedIn = SchemaV2_2_0
	s.Metrics["harmonic"] = m
	return s
}

// ValidateScores checks that every score in scores is a known metric within
// its declared range.
func (s Schema) ValidateScores(scores map[string]float64) (bool, []string) {
	var errs []string
	for name, value := range scores {
		metric, ok := s.Metrics[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("unknown metric: %s", name))
			continue
		}
		if metric.RangeMin != nil && value < *metric.RangeMin {
			errs = append(errs, fmt.Sprintf("%s: value %v below minimum %v", name, value, *metric.RangeMin))
		}
		if metric.RangeMax != nil && value > *metric.RangeMax {
			errs = append(errs, fmt.Sprintf("%s: value %v above maximum %v", name, value, *metric.RangeMax))
		}
	}
	return len(errs) == 0, errs
}

// Migration transforms one node's raw metric values from FromVersion to ToVersion.
type Migration interface {
	FromVersion() SchemaVersion
	ToVersion() SchemaVersion
	MigrateNode(data map[string]float64) (map[string]float64, error)
	ValidateMigration(data map[string]float64) bool
}

// migrationV1ToV2 normalizes raw degree counts into [0,1] and drops the
// recalculated-on-the-other-side importance composite.
type migrationV1ToV2 struct {
	totalNodes int
}

func (m migrationV1ToV2) FromVersion() SchemaVersion { return SchemaV1_2_0 }
func (m migrationV1ToV2) ToVersion() SchemaVersion   { return SchemaV2_0_0 }

func (m migrationV1ToV2) MigrateNode(data map[string]float64) (map[string]float64, error) {
	migrated := make(map[string]float64, len(data))
	for k, v := range data {
		migrated[k] = v
	}
	if degree, ok := migrated["degree"]; ok && m.totalNodes > 1 {
		migrated["degree"] = degree / float64(m.totalNodes-1)
	}
	delete(migrated, "importance")
	return migrated, nil
}

func (m migrationV1ToV2) ValidateMigration(data map[string]float64) bool {
	for _, name := range []string{"pagerank", "degree", "betweenness", "eigenvector"} {
		if v, ok := data[name]; ok && (v < 0 || v > 1) {
			return false
		}
	}
	return true
}

// compatibleMigration is a no-op migration between two same-major versions.
type compatibleMigration struct {
	from, to SchemaVersion
}

func (m compatibleMigration) FromVersion() SchemaVersion { return m.from }
func (m compatibleMigration) ToVersion() SchemaVersion   { return m.to }
func (m compatibleMigration) MigrateNode(data map[string]float64) (map[string]float64, error) {
	return data, nil
}
func (m compatibleMigration) ValidateMigration(map[string]float64) bool { return true }

// MigrationStats summarizes the outcome of a schema migration run.
type MigrationStats struct {
	FromVersion   SchemaVersion
	ToVersion     SchemaVersion
	NodesMigrated int
	Errors        []string
}

// SchemaManager tracks the active centrality schema version for a graph and
// drives migrations between versions.
type SchemaManager struct {
	driver driver.GraphDriver

	mu             sync.Mutex
	currentVersion SchemaVersion
}

// NewSchemaManager creates a manager for d with no cached current version.
func NewSchemaManager(d driver.GraphDriver) *SchemaManager {
	return &SchemaManager{driver: d}
}

// CurrentVersion returns the schema version recorded on the graph, querying
// it once and caching the result for the lifetime of this manager.
func (m *SchemaManager) CurrentVersion(ctx context.Context) (SchemaVersion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentVersion != "" {
		return m.currentVersion, true, nil
	}

	query := `
		MATCH (s:CentralitySchemaVersion)
		RETURN s.version AS version
		ORDER BY s.created_at DESC
		LIMIT 1
	`
	records, _, _, err := m.driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return "", false, fmt.Errorf("querying schema version: %w", err)
	}
	rows, ok := records.([]map[string]interface{})
	if !ok || len(rows) == 0 {
		return "", false, nil
	}
	versionStr, _ := rows[0]["version"].(string)
	version, err := ParseSchemaVersion(versionStr)
	if err != nil {
		return "", false, err
	}
	m.currentVersion = version
	return version, true, nil
}

// SetVersion records version as the graph's current schema version.
func (m *SchemaManager) SetVersion(ctx context.Context, version SchemaVersion) error {
	query := `
		CREATE (s:CentralitySchemaVersion {version: $version, created_at: datetime(), is_current: true})
		WITH s
		MATCH (old:CentralitySchemaVersion {is_current: true})
		WHERE old <> s
		SET old.is_current = false
	`
	_, _, _, err := m.driver.ExecuteQuery(ctx, query, map[string]interface{}{"version": string(version)})
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	m.mu.Lock()
	m.currentVersion = version
	m.mu.Unlock()
	return nil
}

// InitializeSchema sets the graph's schema version for the first time and
// creates its indices. It is a no-op if a version is already recorded.
func (m *SchemaManager) InitializeSchema(ctx context.Context, version SchemaVersion) error {
	if version == "" {
		version = LatestSchemaVersion
	}
	if _, found, err := m.CurrentVersion(ctx); err != nil {
		return err
	} else if found {
		return nil
	}
	if err := m.SetVersion(ctx, version); err != nil {
		return err
	}
	return m.createIndices(ctx, GetSchema(version))
}

func (m *SchemaManager) createIndices(ctx context.Context, schema Schema) error {
	for name := range schema.Metrics {
		query := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS FOR (n:EntityNode) ON (n.centrality_%s)`, name)
		if _, _, _, err := m.driver.ExecuteQuery(ctx, query, nil); err != nil {
			return fmt.Errorf("creating index for %s: %w", name, err)
		}
	}
	return nil
}

// canMigrate reports whether a migration path exists between two versions:
// same-major migrations are always possible, cross-major requires a
// registered migration.
func canMigrate(from, to SchemaVersion) bool {
	if from.CompatibleWith(to) {
		return true
	}
	return from.Major() < to.Major()
}

func buildMigration(from, to SchemaVersion, totalNodes int) Migration {
	if from.Major() == 1 && to.Major() == 2 {
		return migrationV1ToV2{totalNodes: totalNodes}
	}
	return compatibleMigration{from: from, to: to}
}

// MigrateToVersion migrates every entity node's centrality metrics from the
// graph's current schema version to target, in batches of batchSize.
func (m *SchemaManager) MigrateToVersion(ctx context.Context, target SchemaVersion, batchSize int) (*MigrationStats, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	current, found, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no current schema version recorded")
	}
	if current == target {
		return &MigrationStats{FromVersion: current, ToVersion: target}, nil
	}
	if !canMigrate(current, target) {
		return nil, fmt.Errorf("cannot migrate from %s to %s", current, target)
	}

	countQuery := `MATCH (n:EntityNode) RETURN count(n) AS count`
	countRecords, _, _, err := m.driver.ExecuteQuery(ctx, countQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("counting nodes: %w", err)
	}
	totalNodes := 0
	if rows, ok := countRecords.([]map[string]interface{}); ok && len(rows) > 0 {
		if n, ok := rows[0]["count"].(int); ok {
			totalNodes = n
		}
	}

	migration := buildMigration(current, target, totalNodes)

	query := `
		MATCH (n:EntityNode)
		RETURN n.uuid AS uuid,
		       n.centrality_pagerank AS pagerank,
		       n.centrality_degree AS degree,
		       n.centrality_betweenness AS betweenness,
		       n.centrality_eigenvector AS eigenvector,
		       n.centrality_importance AS importance
	`
	records, _, _, err := m.driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("loading nodes for migration: %w", err)
	}
	rows, ok := records.([]map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected record shape %T", records)
	}

	stats := &MigrationStats{FromVersion: current, ToVersion: target}
	for _, batch := range utilsBatchRows(rows, batchSize) {
		for _, row := range batch {
			uuid, _ := row["uuid"].(string)
			data := extractMetrics(row)

			migrated, err := migration.MigrateNode(data)
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("migrating %s: %v", uuid, err))
				continue
			}
			if !migration.ValidateMigration(migrated) {
				stats.Errors = append(stats.Errors, fmt.Sprintf("validation failed for %s", uuid))
				continue
			}
			if err := m.updateNodeMetrics(ctx, uuid, migrated, target); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("writing %s: %v", uuid, err))
				continue
			}
			stats.NodesMigrated++
		}
	}

	if err := m.SetVersion(ctx, target); err != nil {
		return stats, err
	}
	if err := m.createIndices(ctx, GetSchema(target)); err != nil {
		return stats, err
	}
	return stats, nil
}

func extractMetrics(row map[string]interface{}) map[string]float64 {
	out := map[string]float64{}
	for _, name := range []string{"pagerank", "degree", "betweenness", "eigenvector", "importance"} {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			out[name] = n
		case int:
			out[name] = float64(n)
		}
	}
	return out
}

func (m *SchemaManager) updateNodeMetrics(ctx context.Context, nodeUUID string, metrics map[string]float64, version SchemaVersion) error {
	if len(metrics) == 0 {
		return nil
	}
	setClauses := make([]string, 0, len(metrics)+1)
	params := map[string]interface{}{"uuid": nodeUUID, "schema_version": string(version)}
	for name, value := range metrics {
		setClauses = append(setClauses, fmt.Sprintf("n.centrality_%s = $%s", name, name))
		params[name] = value
	}
	sort.Strings(setClauses)
	setClauses = append(setClauses, "n.centrality_schema_version = $schema_version")
	query := fmt.Sprintf(`MATCH (n {uuid: $uuid}) SET %s`, strings.Join(setClauses, ", "))
	_, _, _, err := m.driver.ExecuteQuery(ctx, query, params)
	return err
}

func utilsBatchRows(rows []map[string]interface{}, size int) [][]map[string]interface{} {
	var batches [][]map[string]interface{}
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[i:end])
	}
	return batches
}

// APIVersionNegotiator resolves a client's requested centrality API version
// against the graph's current schema, falling back to the current version
// when the request is missing, unknown, or incompatible.
type APIVersionNegotiator struct {
	schemaManager *SchemaManager
}

// NewAPIVersionNegotiator creates a negotiator backed by manager.
func NewAPIVersionNegotiator(manager *SchemaManager) *APIVersionNegotiator {
	return &APIVersionNegotiator{schemaManager: manager}
}

var acceptVersionPattern = regexp.MustCompile(`v(\d+)`)

// NegotiateVersion picks the schema version to serve a request, given an
// explicit requested version string and/or an Accept-header-style hint
// (e.g. "application/vnd.centrality.v2+json").
func (n *APIVersionNegotiator) NegotiateVersion(ctx context.Context, requestedVersion, acceptHeader string) (SchemaVersion, error) {
	current, found, err := n.schemaManager.CurrentVersion(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		current = LatestSchemaVersion
	}

	if requestedVersion != "" {
		if requested, err := ParseSchemaVersion(requestedVersion); err == nil && requested.CompatibleWith(current) {
			return requested, nil
		}
	}

	if strings.Contains(acceptHeader, "vnd.centrality") {
		if match := acceptVersionPattern.FindStringSubmatch(acceptHeader); match != nil {
			for i := len(schemaOrder) - 1; i >= 0; i-- {
				v := schemaOrder[i]
				if strings.HasPrefix(string(v), match[1]+".") && v.CompatibleWith(current) {
					return v, nil
				}
			}
		}
	}

	return current, nil
}

// FormatResponse filters data down to the metrics defined at version and
// annotates it with version metadata.
func (n *APIVersionNegotiator) FormatResponse(data map[string]float64, version SchemaVersion) map[string]interface{} {
	schema := GetSchema(version)
	filtered := make(map[string]float64, len(schema.Metrics))
	for name := range schema.Metrics {
		if v, ok := data[name]; ok {
			filtered[name] = v
		}
	}
	metricNames := make([]string, 0, len(schema.Metrics))
	for name := range schema.Metrics {
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)

	return map[string]interface{}{
		"version": string(version),
		"data":    filtered,
		"schema":  map[string]interface{}{"metrics": metricNames},
	}
}
