package centrality

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relicore/chrongraph/pkg/driver"
	"github.com/relicore/chrongraph/pkg/utils"
)

// TransactionState is the lifecycle state of a centrality storage transaction.
type TransactionState string

const (
	TransactionPending    TransactionState = "pending"
	TransactionInProgress TransactionState = "in_progress"
	TransactionCommitted  TransactionState = "committed"
	TransactionFailed     TransactionState = "failed"
	TransactionRolledBack TransactionState = "rolled_back"
)

// Checkpoint records how far a transaction has progressed, letting Resume
// continue it after an interruption.
type Checkpoint struct {
	ProcessedNodes int
	LastBatch      []string
	Timestamp      time.Time
}

// Transaction tracks one atomic centrality write.
type Transaction struct {
	ID            string
	State         TransactionState
	StartedAt     time.Time
	TotalNodes    int
	Processed     int
	Failed        int
	ErrorDetail   string
	Checkpoint    *Checkpoint
}

// StorageConfig configures an AtomicStorage instance.
type StorageConfig struct {
	BatchSize          int // nodes written per batch, default 100
	MaxRetries         int // retries per batch before failing, default 3
	CheckpointInterval int // nodes between checkpoints, default 500
}

func (c StorageConfig) withDefaults() StorageConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = 500
	}
	return c
}

// AtomicStorage writes centrality scores back onto entity nodes with
// all-or-nothing batch semantics: every batch either commits in full or the
// whole transaction rolls back, never leaving mixed old/new scores.
type AtomicStorage struct {
	driver driver.GraphDriver
	config StorageConfig

	mu  sync.Mutex
	log []*Transaction
}

// NewAtomicStorage creates an AtomicStorage backed by d.
func NewAtomicStorage(d driver.GraphDriver, config StorageConfig) *AtomicStorage {
	return &AtomicStorage{driver: d, config: config.withDefaults()}
}

// validateScores rejects the whole batch if any score is out of range or the
// wrong type; pagerank and betweenness must lie in [0, 1], all metrics must
// be non-negative.
func validateScores(scores map[string]*Scores) error {
	for id, s := range scores {
		if s == nil {
			return fmt.Errorf("nil scores for node %s", id)
		}
		if s.PageRank < 0 || s.PageRank > 1 {
			return fmt.Errorf("node %s: pagerank %f out of [0,1]", id, s.PageRank)
		}
		if s.Betweenness < 0 || s.Betweenness > 1 {
			return fmt.Errorf("node %s: betweenness %f out of [0,1]", id, s.Betweenness)
		}
		if s.Degree < 0 {
			return fmt.Errorf("node %s: negative degree %d", id, s.Degree)
		}
	}
	return nil
}

// Commit persists scores atomically under a new transaction id, schema
// version schemaVersion. It validates the full batch up front, then writes
// in config.BatchSize chunks, checkpointing every config.CheckpointInterval
// nodes. A batch that still fails after config.MaxRetries retries rolls back
// every write this transaction made and returns the failure.
func (s *AtomicStorage) Commit(ctx context.Context, scores map[string]*Scores, schemaVersion string) (*Transaction, error) {
	if err := validateScores(scores); err != nil {
		return nil, fmt.Errorf("score validation failed: %w", err)
	}

	txn := &Transaction{
		ID:         uuid.New().String(),
		State:      TransactionPending,
		StartedAt:  time.Now(),
		TotalNodes: len(scores),
	}
	s.record(txn)

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	batches := utils.Batch(ids, s.config.BatchSize)

	txn.State = TransactionInProgress
	for _, batch := range batches {
		if err := s.writeBatchWithRetry(ctx, txn, scores, batch, schemaVersion); err != nil {
			txn.State = TransactionFailed
			txn.ErrorDetail = err.Error()
			s.rollback(ctx, txn)
			return txn, fmt.Errorf("batch write failed after %d retries: %w", s.config.MaxRetries, err)
		}

		txn.Processed += len(batch)
		if txn.Processed%s.config.CheckpointInterval == 0 {
			txn.Checkpoint = &Checkpoint{ProcessedNodes: txn.Processed, LastBatch: batch, Timestamp: time.Now()}
		}
	}

	txn.State = TransactionCommitted
	return txn, nil
}

func (s *AtomicStorage) writeBatchWithRetry(ctx context.Context, txn *Transaction, scores map[string]*Scores, batch []string, schemaVersion string) error {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff(attempt))
		}
		if err := s.writeBatch(ctx, txn, scores, batch, schemaVersion); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	txn.Failed += len(batch)
	return lastErr
}

func (s *AtomicStorage) writeBatch(ctx context.Context, txn *Transaction, scores map[string]*Scores, batch []string, schemaVersion string) error {
	for _, id := range batch {
		score := scores[id]
		query := `
			MATCH (n {uuid: $uuid})
			SET n.pagerank_centrality = $pagerank,
			    n.degree_centrality = $degree,
			    n.betweenness_centrality = $betweenness,
			    n.importance_score = $importance,
			    n.centrality_transaction_id = $transaction_id,
			    n.centrality_schema_version = $schema_version
		`
		_, _, _, err := s.driver.ExecuteQuery(ctx, query, map[string]interface{}{
			"uuid":           id,
			"pagerank":       score.PageRank,
			"degree":         score.Degree,
			"betweenness":    score.Betweenness,
			"importance":     score.Importance,
			"transaction_id": txn.ID,
			"schema_version": schemaVersion,
		})
		if err != nil {
			return fmt.Errorf("writing node %s: %w", id, err)
		}
	}
	return nil
}

// rollback removes every centrality property this transaction wrote,
// identified by the transaction id stamped onto each node.
func (s *AtomicStorage) rollback(ctx context.Context, txn *Transaction) {
	query := `
		MATCH (n) WHERE n.centrality_transaction_id = $transaction_id
		REMOVE n.pagerank_centrality, n.degree_centrality, n.betweenness_centrality,
		       n.importance_score, n.centrality_transaction_id, n.centrality_schema_version
	`
	_, _, _, _ = s.driver.ExecuteQuery(ctx, query, map[string]interface{}{"transaction_id": txn.ID})
	txn.State = TransactionRolledBack
}

func (s *AtomicStorage) record(txn *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, txn)
}

// TransactionLog returns every transaction this storage has attempted, most
// recent last.
func (s *AtomicStorage) TransactionLog() []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Transaction, len(s.log))
	copy(out, s.log)
	return out
}

// Resume continues a transaction from its last checkpoint: scores for node
// ids already covered by checkpoint.ProcessedNodes are skipped.
func (s *AtomicStorage) Resume(ctx context.Context, txn *Transaction, scores map[string]*Scores, schemaVersion string) (*Transaction, error) {
	if txn.Checkpoint == nil {
		return s.Commit(ctx, scores, schemaVersion)
	}

	remaining := make(map[string]*Scores, len(scores)-txn.Checkpoint.ProcessedNodes)
	skip := txn.Checkpoint.ProcessedNodes
	i := 0
	for id, score := range scores {
		if i < skip {
			i++
			continue
		}
		remaining[id] = score
		i++
	}

	resumed := &Transaction{
		ID:         txn.ID,
		State:      TransactionInProgress,
		StartedAt:  txn.StartedAt,
		TotalNodes: txn.TotalNodes,
		Processed:  txn.Processed,
	}
	s.record(resumed)

	ids := make([]string, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	for _, batch := range utils.Batch(ids, s.config.BatchSize) {
		if err := s.writeBatchWithRetry(ctx, resumed, remaining, batch, schemaVersion); err != nil {
			resumed.State = TransactionFailed
			resumed.ErrorDetail = err.Error()
			s.rollback(ctx, resumed)
			return resumed, err
		}
		resumed.Processed += len(batch)
	}
	resumed.State = TransactionCommitted
	return resumed, nil
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}
