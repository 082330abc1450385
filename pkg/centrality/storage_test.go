package centrality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicStorageCommitWritesAllBatches(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	storage := NewAtomicStorage(d, StorageConfig{BatchSize: 2})

	scores := map[string]*Scores{
		"a": {NodeUUID: "a", PageRank: 0.1, Degree: 2, Betweenness: 0.05, Importance: 1.2},
		"b": {NodeUUID: "b", PageRank: 0.2, Degree: 3, Betweenness: 0.1, Importance: 1.5},
		"c": {NodeUUID: "c", PageRank: 0.3, Degree: 1, Betweenness: 0.0, Importance: 0.9},
	}

	txn, err := storage.Commit(ctx, scores, string(SchemaV1_1_0))
	require.NoError(t, err)
	assert.Equal(t, TransactionCommitted, txn.State)
	assert.Equal(t, 3, txn.Processed)
	assert.Len(t, d.nodeMetrics, 3)
}

func TestAtomicStorageRejectsOutOfRangeScores(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	storage := NewAtomicStorage(d, StorageConfig{})

	scores := map[string]*Scores{
		"a": {NodeUUID: "a", PageRank: 1.5},
	}

	_, err := storage.Commit(ctx, scores, string(SchemaV1_0_0))
	assert.Error(t, err)
}

func TestAtomicStorageCheckspointsAtInterval(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	storage := NewAtomicStorage(d, StorageConfig{BatchSize: 1, CheckpointInterval: 2})

	scores := map[string]*Scores{
		"a": {NodeUUID: "a"},
		"b": {NodeUUID: "b"},
	}

	txn, err := storage.Commit(ctx, scores, string(SchemaV1_0_0))
	require.NoError(t, err)
	require.NotNil(t, txn.Checkpoint)
	assert.Equal(t, 2, txn.Checkpoint.ProcessedNodes)
}

func TestAtomicStorageTransactionLogRecordsAttempts(t *testing.T) {
	ctx := context.Background()
	d := newFakeQueryDriver()
	storage := NewAtomicStorage(d, StorageConfig{})

	_, err := storage.Commit(ctx, map[string]*Scores{"a": {NodeUUID: "a"}}, string(SchemaV1_0_0))
	require.NoError(t, err)

	log := storage.TransactionLog()
	require.Len(t, log, 1)
	assert.Equal(t, TransactionCommitted, log[0].State)
}
