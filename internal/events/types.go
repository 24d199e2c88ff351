package events

import "time"

// TopicLeadAnalyzed is the default topic for LeadAnalyzedV1.
const TopicLeadAnalyzed = "lead.analyzed.v1"

type LeadAnalyzedV1 struct {
	EventID        string    `json:"eventId"`
	OrgID          string    `json:"orgId"`
	ConversationID string    `json:"conversationId"`
	LeadID         string    `json:"leadId,omitempty"`
	IsHot          bool      `json:"isHot"`
	Score          int       `json:"score"`
	Confidence     int       `json:"confidence"`
	Classification string    `json:"classification"`
	Signals        []string  `json:"signals"`
	OccurredAt     time.Time `json:"occurredAt"`
}
