package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"supplylink/internal/queue"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testStream = "test:jobs"
	testGroup  = "test-workers"
)

func setup(t *testing.T) (*rd.Client, *queue.StreamQueue, *queue.Worker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	w := queue.NewWorker(client, testStream, testGroup, "c1", zap.NewNop())
	require.NoError(t, w.EnsureGroup(context.Background()))
	return client, queue.NewStreamQueue(client, testStream), w
}

func TestWorker_DeliversNotificationJob(t *testing.T) {
	client, q, w := setup(t)
	ctx := context.Background()

	var got []queue.Job
	w.Handle(queue.JobNotification, func(_ context.Context, job queue.Job) error {
		got = append(got, job)
		return nil
	})

	job := queue.NotificationJob("user-1", "NEW_QUOTE", "New quote request", "Steel")
	require.NoError(t, q.Enqueue(ctx, job))

	n, err := w.ProcessBatch(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, got, 1)
	assert.Equal(t, "user-1", got[0].UserID)
	assert.Equal(t, "NEW_QUOTE", got[0].Kind)
	assert.Equal(t, "New quote request", got[0].Title)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	length, err := client.XLen(ctx, testStream).Result()
	require.NoError(t, err)
	assert.Zero(t, length, "processed entries are removed")
}

func TestWorker_AcksFailedJobs(t *testing.T) {
	client, q, w := setup(t)
	ctx := context.Background()

	calls := 0
	w.Handle(queue.JobSendEmail, func(context.Context, queue.Job) error {
		calls++
		return errors.New("smtp down")
	})

	require.NoError(t, q.Enqueue(ctx, queue.EmailJob("a@b.com", "Reset", "link")))

	_, err := w.ProcessBatch(ctx, -1)
	require.NoError(t, err)
	_, err = w.ProcessBatch(ctx, -1)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "failed job is not retried")

	pending, err := client.XPending(ctx, testStream, testGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestWorker_DropsMalformedEntries(t *testing.T) {
	client, _, w := setup(t)
	ctx := context.Background()

	called := false
	w.Handle(queue.JobNotification, func(context.Context, queue.Job) error {
		called = true
		return nil
	})

	require.NoError(t, client.XAdd(ctx, &rd.XAddArgs{
		Stream: testStream,
		Values: map[string]interface{}{"type": "notification", "payload": "{not json"},
	}).Err())

	n, err := w.ProcessBatch(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, called)

	length, err := client.XLen(ctx, testStream).Result()
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestWorker_EmptyStream(t *testing.T) {
	_, _, w := setup(t)

	n, err := w.ProcessBatch(context.Background(), -1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStreamQueue_RejectsInvalidJobs(t *testing.T) {
	_, q, _ := setup(t)
	ctx := context.Background()

	assert.Error(t, q.Enqueue(ctx, queue.Job{Type: "bogus"}))
	assert.Error(t, q.Enqueue(ctx, queue.NotificationJob("", "NEW_QUOTE", "t", "b")))
	assert.Error(t, q.Enqueue(ctx, queue.EmailJob("", "s", "b")))
	assert.NoError(t, q.Enqueue(ctx, queue.MLTriggerJob("order delivered")))
}

func TestStreamQueue_EnqueueAppendsCappedEntry(t *testing.T) {
	client, q, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, queue.MLTriggerJob("order delivered")))
	}

	entries, err := client.XRange(ctx, testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, queue.JobMLTrigger, entries[0].Values["type"])
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	_, q, w := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	handled := make(chan queue.Job, 1)
	w.Handle(queue.JobMLTrigger, func(_ context.Context, job queue.Job) error {
		handled <- job
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, q.Enqueue(context.Background(), queue.MLTriggerJob("delivered")))

	select {
	case job := <-handled:
		assert.Equal(t, "delivered", job.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not handled")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
}

func (p *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][]byte)
	}
	p.messages[key] = value
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestForwardOrderEvents(t *testing.T) {
	pub := &fakePublisher{}
	noop := func(context.Context, queue.Job) error { return nil }
	h := queue.ForwardOrderEvents(pub, "ORDER_STATUS", noop)
	ctx := context.Background()

	require.NoError(t, h(ctx, queue.NotificationJob("u1", "NEW_QUOTE", "t", "b")))
	assert.Empty(t, pub.messages)

	job := queue.NotificationJob("u1", "ORDER_STATUS", "Order updated", "IN_TRANSIT").WithOrder("order-1", "IN_TRANSIT")
	require.NoError(t, h(ctx, job))
	require.Contains(t, pub.messages, "order-1")

	var ev queue.OrderEvent
	require.NoError(t, json.Unmarshal(pub.messages["order-1"], &ev))
	assert.Equal(t, "IN_TRANSIT", ev.Status)
	assert.Equal(t, "u1", ev.NotifiedID)
}

func TestForwardOrderEvents_SkipsWhenHandlerFails(t *testing.T) {
	pub := &fakePublisher{}
	h := queue.ForwardOrderEvents(pub, "ORDER_STATUS", func(context.Context, queue.Job) error {
		return errors.New("db down")
	})

	job := queue.NotificationJob("u1", "ORDER_STATUS", "t", "b").WithOrder("order-1", "DELIVERED")
	assert.Error(t, h(context.Background(), job))
	assert.Empty(t, pub.messages)
}
