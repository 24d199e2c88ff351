package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
	done  chan struct{}
}

func (r *recordingNotifier) NotifyHotLead(_ context.Context, orgID string, n *LeadNotification) error {
	r.mu.Lock()
	r.calls = append(r.calls, orgID+":"+n.Name)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type recordingMarker struct {
	mu     sync.Mutex
	marked []string
}

func (m *recordingMarker) MarkNotified(_ context.Context, orgID, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, orgID+":"+id)
	return nil
}

type deleteTrackingQueue struct {
	*MemoryQueue
	mu      sync.Mutex
	deleted []string
}

func (q *deleteTrackingQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func TestWorker_RoundTrip(t *testing.T) {
	queue := NewMemoryQueue(8)
	notifier := &recordingNotifier{done: make(chan struct{}, 4)}
	marker := &recordingMarker{}
	publisher := NewPublisher(queue, nil)
	worker := NewWorker(notifier, queue, nil,
		WithWorkerCount(1),
		WithReceiveWaitSeconds(1),
		WithDeduper(NewMemoryDedupeStore(time.Hour)),
		WithLeadMarker(marker),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	jobID, err := publisher.EnqueueHotLead(ctx, "org-1", "conv-1", "lead-1", testNotification())
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	select {
	case <-notifier.done:
	case <-time.After(3 * time.Second):
		t.Fatal("notification not delivered")
	}

	// a second hot analysis of the same conversation is deduplicated
	_, err = publisher.EnqueueHotLead(ctx, "org-1", "conv-1", "lead-1", testNotification())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		marker.mu.Lock()
		defer marker.mu.Unlock()
		return len(marker.marked) == 1 && len(queue.jobs) == 0
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	worker.Wait()

	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, []string{"org-1:lead-1"}, marker.marked)
}

func TestWorker_HandleMessage_PoisonDeleted(t *testing.T) {
	queue := &deleteTrackingQueue{MemoryQueue: NewMemoryQueue(1)}
	notifier := &recordingNotifier{}
	worker := NewWorker(notifier, queue, nil)

	worker.handleMessage(context.Background(), queueMessage{ID: "1", Body: "{not json", ReceiptHandle: "r1"})
	worker.handleMessage(context.Background(), queueMessage{ID: "2", Body: `{"kind":"other","orgId":"org-1"}`, ReceiptHandle: "r2"})

	assert.Equal(t, []string{"r1", "r2"}, queue.deleted)
	assert.Equal(t, 0, notifier.count())
}

func TestWorker_FailedNotificationNotMarked(t *testing.T) {
	queue := &deleteTrackingQueue{MemoryQueue: NewMemoryQueue(1)}
	notifier := &recordingNotifier{err: errors.New("notify: 1 notification(s) failed")}
	marker := &recordingMarker{}
	worker := NewWorker(notifier, queue, nil, WithLeadMarker(marker))

	_, body, err := encodeJob(Job{OrgID: "org-1", ConversationID: "conv-1", LeadID: "lead-1", Notification: testNotification()})
	require.NoError(t, err)
	worker.handleMessage(context.Background(), queueMessage{ID: "1", Body: body, ReceiptHandle: "r1"})

	assert.Equal(t, 1, notifier.count())
	assert.Empty(t, marker.marked)
	assert.Equal(t, []string{"r1"}, queue.deleted)
}

func TestWorker_ClaimReleasedWhenNothingDelivered(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reclaimed bool
	}{
		{name: "nothing delivered", err: fmt.Errorf("notify: 1 notification(s) failed: %w", ErrNothingDelivered), reclaimed: true},
		{name: "partial delivery", err: errors.New("notify: 1 notification(s) failed"), reclaimed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deduper := NewMemoryDedupeStore(time.Hour)
			queue := &deleteTrackingQueue{MemoryQueue: NewMemoryQueue(1)}
			worker := NewWorker(&recordingNotifier{err: tt.err}, queue, nil, WithDeduper(deduper))

			_, body, err := encodeJob(Job{OrgID: "org-1", ConversationID: "conv-1", Notification: testNotification()})
			require.NoError(t, err)
			worker.handleMessage(context.Background(), queueMessage{ID: "1", Body: body, ReceiptHandle: "r1"})

			first, err := deduper.Claim(context.Background(), "org-1", "conv-1")
			require.NoError(t, err)
			assert.Equal(t, tt.reclaimed, first)
		})
	}
}

func TestEncodeJob(t *testing.T) {
	job, body, err := encodeJob(Job{OrgID: "org-1", ConversationID: "conv-1", Notification: testNotification()})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, jobKindHotLead, job.Kind)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	assert.Equal(t, "lead.hot", raw["kind"])
	assert.Equal(t, "org-1", raw["orgId"])
	assert.Equal(t, "conv-1", raw["conversationId"])
	notification, ok := raw["notification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "lead-analyzer", notification["source"])
}

func TestWorkerOptions(t *testing.T) {
	cfg := workerConfig{}
	WithReceiveWaitSeconds(60)(&cfg)
	WithReceiveBatchSize(50)(&cfg)
	WithWorkerCount(0)(&cfg)
	assert.Equal(t, maxWaitSeconds, cfg.receiveWaitSecs)
	assert.Equal(t, maxReceiveBatchSize, cfg.receiveBatchSize)
	assert.Equal(t, 0, cfg.workers)
}

func TestMemoryQueue_ReceiveTimeout(t *testing.T) {
	q := NewMemoryQueue(2)
	msgs, err := q.Receive(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, q.Send(context.Background(), "a"))
	require.NoError(t, q.Send(context.Background(), "b"))
	msgs, err = q.Receive(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestMemoryQueue_TracksJobsUntilDeleted(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(4)

	job, body, err := encodeJob(Job{OrgID: "org-1", ConversationID: "conv-1", Notification: testNotification()})
	require.NoError(t, err)
	require.NoError(t, q.Send(ctx, body))
	require.NoError(t, q.Send(ctx, "{not json"))

	queued, inFlight := q.Pending()
	assert.Equal(t, 2, queued)
	assert.Zero(t, inFlight)

	msgs, err := q.Receive(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, job.ID, msgs[0].ID)
	assert.NotEmpty(t, msgs[0].ReceiptHandle)

	queued, inFlight = q.Pending()
	assert.Equal(t, 1, queued)
	assert.Equal(t, 1, inFlight)

	require.NoError(t, q.Delete(ctx, msgs[0].ReceiptHandle))
	rest, err := q.Receive(ctx, 5, 1)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotEmpty(t, rest[0].ID)
	require.NoError(t, q.Delete(ctx, rest[0].ReceiptHandle))

	queued, inFlight = q.Pending()
	assert.Zero(t, queued+inFlight)
}

func TestMemoryQueue_ReceiveHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryQueue(1).Receive(ctx, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
