package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMemoryQueueBuffer = 128

// MemoryQueue carries notification jobs over a buffered channel inside one
// process. Jobs are lost on restart; Pending reports how many would be.
type MemoryQueue struct {
	jobs chan queueMessage

	mu       sync.Mutex
	inFlight map[string]string // receipt handle -> job id
}

// NewMemoryQueue creates a MemoryQueue holding up to buffer unreceived jobs.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = defaultMemoryQueueBuffer
	}
	return &MemoryQueue{
		jobs:     make(chan queueMessage, buffer),
		inFlight: make(map[string]string),
	}
}

// Send enqueues an encoded job, blocking while the buffer is full.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	msg := queueMessage{ID: jobIDOf(body), Body: body}

	select {
	case q.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits up to waitSeconds (forever when zero) for the first job and
// then takes whatever else is already buffered, up to maxMessages.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var timeout <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	var first queueMessage
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, nil
	case first = <-q.jobs:
	}

	batch := []queueMessage{q.lease(first)}
	for len(batch) < maxMessages {
		select {
		case msg := <-q.jobs:
			batch = append(batch, q.lease(msg))
		default:
			return batch, nil
		}
	}
	return batch, nil
}

// Delete acknowledges a received job.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	delete(q.inFlight, receiptHandle)
	q.mu.Unlock()
	return nil
}

// Pending returns the jobs still buffered and those received but not yet
// acknowledged.
func (q *MemoryQueue) Pending() (queued, inFlight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs), len(q.inFlight)
}

func (q *MemoryQueue) lease(msg queueMessage) queueMessage {
	msg.ReceiptHandle = uuid.NewString()
	q.mu.Lock()
	q.inFlight[msg.ReceiptHandle] = msg.ID
	q.mu.Unlock()
	return msg
}

// jobIDOf returns the id carried in an encoded job, or a fresh one.
func jobIDOf(body string) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &head); err == nil && head.ID != "" {
		return head.ID
	}
	return uuid.NewString()
}
