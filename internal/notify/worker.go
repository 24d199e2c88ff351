package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// HotLeadNotifier delivers one notification.
type HotLeadNotifier interface {
	NotifyHotLead(ctx context.Context, orgID string, n *LeadNotification) error
}

// LeadMarker records that a lead's operators were notified.
type LeadMarker interface {
	MarkNotified(ctx context.Context, orgID, id string, at time.Time) error
}

// Worker consumes notification jobs from the queue.
type Worker struct {
	notifier HotLeadNotifier
	queue    queueClient
	logger   *logging.Logger
	now      func() time.Time

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	deduper          Deduper
	marker           LeadMarker
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	maxReceiveBackoff    = 5 * time.Second
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithDeduper suppresses repeat notifications for a conversation.
func WithDeduper(d Deduper) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.deduper = d
	}
}

// WithLeadMarker stamps notified_at on the lead after delivery.
func WithLeadMarker(m LeadMarker) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.marker = m
	}
}

// NewWorker constructs a queue consumer around the notifier.
func NewWorker(notifier HotLeadNotifier, queue queueClient, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if notifier == nil {
		panic("notify: notifier cannot be nil")
	}
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		notifier: notifier,
		queue:    queue,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("notify worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("notify worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive notify jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxReceiveBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("failed to decode notify job", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}
	if job.Kind != jobKindHotLead || job.Notification == nil || job.OrgID == "" {
		w.logger.Error("dropping malformed notify job", "job_id", job.ID, "kind", job.Kind)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	w.process(ctx, job)
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) process(ctx context.Context, job Job) {
	logger := w.logger.With("job_id", job.ID, "org_id", job.OrgID, "conversation_id", job.ConversationID)

	if w.cfg.deduper != nil && job.ConversationID != "" {
		first, err := w.cfg.deduper.Claim(ctx, job.OrgID, job.ConversationID)
		if err != nil {
			logger.Warn("notify dedupe check failed", "error", err)
		} else if !first {
			logger.Info("hot lead already notified, skipping")
			return
		}
	}

	if err := w.notifier.NotifyHotLead(ctx, job.OrgID, job.Notification); err != nil {
		logger.Error("hot lead notification failed", "error", err)
		// Partial deliveries keep the claim; a later analysis must not repeat them.
		if errors.Is(err, ErrNothingDelivered) && w.cfg.deduper != nil && job.ConversationID != "" {
			if err := w.cfg.deduper.Release(context.Background(), job.OrgID, job.ConversationID); err != nil {
				logger.Warn("failed to release notify claim", "error", err)
			}
		}
		return
	}

	if w.cfg.marker != nil && job.LeadID != "" {
		if err := w.cfg.marker.MarkNotified(ctx, job.OrgID, job.LeadID, w.now().UTC()); err != nil {
			logger.Warn("failed to mark lead notified", "error", err, "lead_id", job.LeadID)
		}
	}
	logger.Info("hot lead notification processed", "lead_id", job.LeadID)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete notify job", "error", err)
	}
}
