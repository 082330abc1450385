package centrality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaVersionCompatibility(t *testing.T) {
	assert.True(t, SchemaV1_0_0.CompatibleWith(SchemaV1_2_0))
	assert.False(t, SchemaV1_2_0.CompatibleWith(SchemaV2_0_0))
}

func TestParseSchemaVersionUnknown(t *testing.T) {
	_, err := ParseSchemaVersion("9.9.9")
	assert.Error(t, err)
}

func TestSchemaV1_1_0AddsImportance(t *testing.T) {
	s := GetSchema(SchemaV1_1_0)
	_, ok := s.Metrics["importance"]
	assert.True(t, ok)
}

func TestValidateScoresCatchesRangeViolations(t *testing.T) {
	s := GetSchema(SchemaV1_0_0)
	ok, errs := s.ValidateScores(map[string]float64{"pagerank": 2.0})
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
}

func TestSchemaManagerInitializeRecordsVersion(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	manager := NewSchemaManager(d)

	require.NoError(t, manager.InitializeSchema(ctx, SchemaV1_2_0))

	current, found, err := manager.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, SchemaV1_2_0, current)
}

func TestSchemaManagerMigrateToSameVersionIsNoOp(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	manager := NewSchemaManager(d)
	require.NoError(t, manager.InitializeSchema(ctx, SchemaV1_0_0))

	stats, err := manager.MigrateToVersion(ctx, SchemaV1_0_0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NodesMigrated)
}

func TestAPIVersionNegotiatorFallsBackToCurrent(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	manager := NewSchemaManager(d)
	require.NoError(t, manager.InitializeSchema(ctx, SchemaV2_1_0))

	negotiator := NewAPIVersionNegotiator(manager)

	version, err := negotiator.NegotiateVersion(ctx, "not-a-version", "")
	require.NoError(t, err)
	assert.Equal(t, SchemaV2_1_0, version)
}

func TestAPIVersionNegotiatorHonorsCompatibleRequest(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	manager := NewSchemaManager(d)
	require.NoError(t, manager.InitializeSchema(ctx, SchemaV2_1_0))

	negotiator := NewAPIVersionNegotiator(manager)

	version, err := negotiator.NegotiateVersion(ctx, string(SchemaV2_0_0), "")
	require.NoError(t, err)
	assert.Equal(t, SchemaV2_0_0, version)
}

func TestFormatResponseFiltersToSchemaMetrics(t *testing.T) {
	manager := NewSchemaManager(newFakeQueryDriver())
	negotiator := NewAPIVersionNegotiator(manager)

	formatted := negotiator.FormatResponse(map[string]float64{
		"pagerank": 0.5, "eigenvector": 0.1, "harmonic": 0.2,
	}, SchemaV1_0_0)

	data := formatted["data"].(map[string]float64)
	assert.Contains(t, data, "pagerank")
	assert.NotContains(t, data, "eigenvector")
}
