// Package ingestworker consumes episode-ingestion requests from a queue and
// runs them through the ingestion pipeline with bounded concurrency,
// per-group serialization, and live throughput metrics.
package ingestworker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Receive/Ack once the queue has been closed.
var ErrQueueClosed = errors.New("ingestworker: queue closed")

// Message is the opaque ingestion request carried by the queue: an episode
// plus enough metadata to route and process it. Fields mirror the wire
// contract's {group_id, episode name, content, source kind, source
// description, reference time, optional caller fields}.
type Message struct {
	ID                string
	Receipt           string // opaque token presented back to Ack
	GroupID           string
	EpisodeName       string
	Content           string
	SourceKind        string
	SourceDescription string
	ReferenceTime     time.Time
	CallerFields      map[string]interface{}

	receivedAt time.Time
}

// Queue is the minimal contract a message source must satisfy: receive up
// to maxMessages currently-visible messages (marking them invisible for
// visibilityTimeout), and ack a message by its receipt once processing
// commits. Delivery is at-least-once — an unacked message becomes visible
// again after its visibility timeout elapses.
type Queue interface {
	Send(ctx context.Context, msg Message) error
	Receive(ctx context.Context, maxMessages int, visibilityTimeout time.Duration) ([]Message, error)
	Ack(ctx context.Context, receipt string) error
	Close() error
}

// InMemoryQueue is a reference Queue implementation for tests and
// single-process deployments: messages live in a slice, with a per-message
// visibility deadline enforced on Receive.
type InMemoryQueue struct {
	mu      sync.Mutex
	pending []*queuedMessage
	closed  bool
}

type queuedMessage struct {
	msg       Message
	visibleAt time.Time // zero means immediately visible
}

// NewInMemoryQueue creates an empty in-memory queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{}
}

// Send enqueues msg, assigning it an id if unset. Receipts are assigned by
// Receive.
func (q *InMemoryQueue) Send(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	q.pending = append(q.pending, &queuedMessage{msg: msg})
	return nil
}

// Receive returns up to maxMessages currently-visible messages, stamping
// each with a fresh receipt and hiding it until visibilityTimeout elapses.
func (q *InMemoryQueue) Receive(ctx context.Context, maxMessages int, visibilityTimeout time.Duration) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	now := time.Now()
	var out []Message
	for _, qm := range q.pending {
		if len(out) >= maxMessages {
			break
		}
		if !qm.visibleAt.IsZero() && qm.visibleAt.After(now) {
			continue
		}
		qm.msg.Receipt = uuid.New().String()
		qm.msg.receivedAt = now
		qm.visibleAt = now.Add(visibilityTimeout)
		out = append(out, qm.msg)
	}
	return out, nil
}

// Ack removes the message identified by receipt, committing its delivery.
func (q *InMemoryQueue) Ack(ctx context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	for i, qm := range q.pending {
		if qm.msg.Receipt == receipt {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return nil
		}
	}
	return nil // already acked or expired back to visible; ack is idempotent
}

// Close marks the queue closed; further Send/Receive/Ack calls fail.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// VisibleCount reports how many messages are currently visible (not
// in-flight), for tests.
func (q *InMemoryQueue) VisibleCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	count := 0
	for _, qm := range q.pending {
		if qm.visibleAt.IsZero() || !qm.visibleAt.After(now) {
			count++
		}
	}
	return count
}

// InvisibleCount reports how many messages are currently in-flight
// (received but not yet acked or expired), for tests.
func (q *InMemoryQueue) InvisibleCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	count := 0
	for _, qm := range q.pending {
		if !qm.visibleAt.IsZero() && qm.visibleAt.After(now) {
			count++
		}
	}
	return count
}
