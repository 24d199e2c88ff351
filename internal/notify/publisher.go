package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// Publisher enqueues hot-lead jobs for asynchronous delivery.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueHotLead publishes a lead.hot job and returns its id.
func (p *Publisher) EnqueueHotLead(ctx context.Context, orgID, conversationID, leadID string, n *LeadNotification) (string, error) {
	if n == nil {
		return "", errors.New("notify: notification required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	job, body, err := encodeJob(Job{
		Kind:           jobKindHotLead,
		OrgID:          orgID,
		ConversationID: conversationID,
		LeadID:         leadID,
		Notification:   n,
	})
	if err != nil {
		return "", err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return "", fmt.Errorf("notify: failed to enqueue job: %w", err)
	}

	p.logger.Debug("notify job enqueued", "job_id", job.ID, "org_id", orgID, "conversation_id", conversationID)
	return job.ID, nil
}
