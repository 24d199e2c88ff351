package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobKind string

const jobKindHotLead jobKind = "lead.hot"

// Job is the queued unit of notification work.
type Job struct {
	ID             string            `json:"id"`
	Kind           jobKind           `json:"kind"`
	OrgID          string            `json:"orgId"`
	ConversationID string            `json:"conversationId"`
	LeadID         string            `json:"leadId,omitempty"`
	Notification   *LeadNotification `json:"notification"`
}

func encodeJob(job Job) (Job, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Kind == "" {
		job.Kind = jobKindHotLead
	}
	body, err := json.Marshal(job)
	if err != nil {
		return Job{}, "", fmt.Errorf("notify: failed to encode job: %w", err)
	}
	return job, string(body), nil
}
