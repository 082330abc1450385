package ingestworker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Processor ingests a single message's episode. Returning an error leaves
// the message unacked, so the queue's visibility timeout returns it to
// other consumers (or this one, on its next poll) — at-least-once delivery.
type Processor func(ctx context.Context, msg Message) error

// Config tunes a Worker's polling and concurrency behavior.
type Config struct {
	Concurrency       int           // max messages processed at once, default 10
	BatchSize         int           // messages requested per Receive call, default Concurrency
	VisibilityTimeout time.Duration // default 30s
	PollInterval      time.Duration // sleep between empty Receive calls, default 1s
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.BatchSize <= 0 {
		c.BatchSize = c.Concurrency
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// Metrics is a live snapshot of a Worker's throughput.
type Metrics struct {
	Visible     int
	Invisible   int
	Processed   int64
	Failed      int64
	LastRefresh time.Time
}

// SuccessRate returns Processed / (Processed + Failed), or 1.0 if nothing
// has completed yet.
func (m Metrics) SuccessRate() float64 {
	total := m.Processed + m.Failed
	if total == 0 {
		return 1.0
	}
	return float64(m.Processed) / float64(total)
}

// Worker polls a Queue and runs each message through Processor, bounding
// overall concurrency with a semaphore and serializing messages that share
// a group id so ingestion never races against itself within one group.
type Worker struct {
	queue     Queue
	processor Processor
	config    Config

	sem *semaphore.Weighted

	groupLocksMu sync.Mutex
	groupLocks   map[string]*sync.Mutex

	metricsMu sync.Mutex
	processed int64
	failed    int64
}

// New creates a Worker consuming from queue via processor.
func New(queue Queue, processor Processor, config Config) *Worker {
	config = config.withDefaults()
	return &Worker{
		queue:      queue,
		processor:  processor,
		config:     config,
		sem:        semaphore.NewWeighted(int64(config.Concurrency)),
		groupLocks: make(map[string]*sync.Mutex),
	}
}

func (w *Worker) groupLock(groupID string) *sync.Mutex {
	w.groupLocksMu.Lock()
	defer w.groupLocksMu.Unlock()
	lock, ok := w.groupLocks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		w.groupLocks[groupID] = lock
	}
	return lock
}

// Run polls the queue until ctx is cancelled, dispatching every received
// message through the bounded-concurrency pool. It returns ctx.Err() on
// cancellation.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := w.queue.Receive(ctx, w.config.BatchSize, w.config.VisibilityTimeout)
		if err != nil {
			if err == ErrQueueClosed {
				return nil
			}
			return err
		}

		if len(messages) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.PollInterval):
			}
			continue
		}

		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			if err := w.sem.Acquire(ctx, 1); err != nil {
				// ctx was cancelled while waiting for a slot; stop dispatching
				// this batch and let the outer loop observe ctx.Done().
				break
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer w.sem.Release(1)
				_ = w.handle(ctx, msg)
			}()
		}
		wg.Wait()
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) error {
	lock := w.groupLock(msg.GroupID)
	lock.Lock()
	defer lock.Unlock()

	err := w.processor(ctx, msg)

	w.metricsMu.Lock()
	if err != nil {
		w.failed++
	} else {
		w.processed++
	}
	w.metricsMu.Unlock()

	if err != nil {
		return err
	}
	return w.queue.Ack(ctx, msg.Receipt)
}

// SnapshotMetrics returns the worker's current throughput metrics along
// with the queue's visible/invisible counts when the queue supports
// reporting them.
func (w *Worker) SnapshotMetrics() Metrics {
	w.metricsMu.Lock()
	m := Metrics{Processed: w.processed, Failed: w.failed, LastRefresh: time.Now()}
	w.metricsMu.Unlock()

	if counter, ok := w.queue.(interface {
		VisibleCount() int
		InvisibleCount() int
	}); ok {
		m.Visible = counter.VisibleCount()
		m.Invisible = counter.InvisibleCount()
	}
	return m
}
