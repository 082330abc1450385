package ingestworker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueueSendReceiveAck(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue()

	require.NoError(t, q.Send(ctx, Message{GroupID: "g1", EpisodeName: "ep1"}))

	msgs, err := q.Receive(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 0, q.VisibleCount())
	assert.Equal(t, 1, q.InvisibleCount())

	require.NoError(t, q.Ack(ctx, msgs[0].Receipt))
	assert.Equal(t, 0, q.InvisibleCount())
}

func TestInMemoryQueueVisibilityTimeoutReturnsMessage(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue()
	require.NoError(t, q.Send(ctx, Message{GroupID: "g1"}))

	msgs, err := q.Receive(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, q.VisibleCount())

	again, err := q.Receive(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
}

func TestWorkerProcessesAndAcksMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	q := NewInMemoryQueue()
	require.NoError(t, q.Send(ctx, Message{GroupID: "g1", EpisodeName: "ep1"}))
	require.NoError(t, q.Send(ctx, Message{GroupID: "g1", EpisodeName: "ep2"}))

	var processedCount int32
	w := New(q, func(ctx context.Context, msg Message) error {
		atomic.AddInt32(&processedCount, 1)
		return nil
	}, Config{Concurrency: 2, PollInterval: 10 * time.Millisecond})

	_ = w.Run(ctx)

	assert.Equal(t, int32(2), processedCount)
	metrics := w.SnapshotMetrics()
	assert.Equal(t, int64(2), metrics.Processed)
	assert.Equal(t, float64(1), metrics.SuccessRate())
}

func TestWorkerLeavesFailedMessagesUnacked(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	q := NewInMemoryQueue()
	require.NoError(t, q.Send(ctx, Message{GroupID: "g1"}))

	w := New(q, func(ctx context.Context, msg Message) error {
		return errors.New("boom")
	}, Config{Concurrency: 1, VisibilityTimeout: time.Hour, PollInterval: 10 * time.Millisecond})

	_ = w.Run(ctx)

	metrics := w.SnapshotMetrics()
	assert.Equal(t, int64(1), metrics.Failed)
	assert.Equal(t, 1, metrics.Invisible)
}

func TestWorkerSerializesSameGroupMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	q := NewInMemoryQueue()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Send(ctx, Message{GroupID: "same-group"}))
	}

	var mu sync.Mutex
	active := 0
	maxActive := 0
	w := New(q, func(ctx context.Context, msg Message) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}, Config{Concurrency: 5, PollInterval: 10 * time.Millisecond})

	_ = w.Run(ctx)

	assert.Equal(t, 1, maxActive)
}

func TestMetricsSuccessRateWithNoCompletions(t *testing.T) {
	m := Metrics{}
	assert.Equal(t, 1.0, m.SuccessRate())
}
