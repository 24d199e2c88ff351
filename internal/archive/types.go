package archive

import "time"

const recordVersion = "1.0"

// TranscriptRecord is the scrubbed conversation snapshot archived to S3 when
// a lead turns hot. It feeds offline review of the scoring rules.
type TranscriptRecord struct {
	Version        string    `json:"version"`
	ConversationID string    `json:"conversation_id"`
	OrgID          string    `json:"org_id"`
	LeadID         string    `json:"lead_id,omitempty"`
	ContactHash    string    `json:"contact_hash,omitempty"` // sha256 of phone or email
	ArchivedAt     time.Time `json:"archived_at"`
	MessageCount   int       `json:"message_count"`
	Outcome        Outcome   `json:"outcome"`
	Messages       []Message `json:"messages"`
}

// Outcome is the scoring result at archive time.
type Outcome struct {
	IsHot          bool     `json:"is_hot"`
	Score          int      `json:"score"`
	Total          int      `json:"total"`
	Confidence     int      `json:"confidence"`
	Classification string   `json:"classification"`
	Signals        []string `json:"signals"`
	Service        string   `json:"service,omitempty"`
	Urgency        string   `json:"urgency,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	ConversationID string `json:"conversation_id"`
	OrgID          string `json:"org_id"`
	S3Key          string `json:"s3_key"`
	Classification string `json:"classification"`
	Score          int    `json:"score"`
	ArchivedAt     string `json:"archived_at"`
	MessageCount   int    `json:"message_count"`
}
