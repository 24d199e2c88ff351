package archive

import (
	"context"
	"time"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// TranscriptArchiver scrubs and archives conversations that scored hot.
// Errors are logged but never block the caller.
type TranscriptArchiver struct {
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

// NewTranscriptArchiver returns nil if store is not enabled.
func NewTranscriptArchiver(store *Store, logger *logging.Logger) *TranscriptArchiver {
	if store == nil || !store.Enabled() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TranscriptArchiver{store: store, logger: logger, now: time.Now}
}

// ArchiveInput is one analyzed conversation.
type ArchiveInput struct {
	OrgID          string
	ConversationID string
	LeadID         string
	Messages       []analyzer.Message
	LatestResponse string
	Analysis       *analyzer.LeadAnalysis
}

// Archive stores a scrubbed copy of the conversation with its outcome.
func (ta *TranscriptArchiver) Archive(ctx context.Context, in ArchiveInput) {
	if ta == nil || in.Analysis == nil {
		return
	}

	record := buildRecord(in, ta.now().UTC())
	key, err := ta.store.Put(ctx, record)
	if err != nil {
		ta.logger.Warn("transcript archive failed", "error", err, "org_id", in.OrgID, "conversation_id", in.ConversationID)
		return
	}
	ta.logger.Debug("transcript archived", "conversation_id", in.ConversationID, "s3_key", key)
}

func buildRecord(in ArchiveInput, now time.Time) *TranscriptRecord {
	msgs := make([]Message, 0, len(in.Messages)+1)
	for _, m := range in.Messages {
		msgs = append(msgs, Message{Role: string(m.Role), Content: m.Content})
	}
	if in.LatestResponse != "" {
		msgs = append(msgs, Message{Role: string(analyzer.RoleAssistant), Content: in.LatestResponse})
	}
	ScrubMessages(msgs)

	a := in.Analysis
	signals := a.Signals.Active()
	if signals == nil {
		signals = []string{}
	}
	outcome := Outcome{
		IsHot:          a.IsHot,
		Score:          a.Score,
		Total:          a.Breakdown.Total,
		Confidence:     a.Confidence,
		Classification: a.Classification(),
		Signals:        signals,
	}

	var contactHash string
	if info := a.Info; info != nil {
		if info.Service != nil {
			outcome.Service = *info.Service
		}
		outcome.Urgency = string(info.Urgency)
		switch {
		case info.Phone != nil:
			contactHash = HashContact(*info.Phone)
		case info.Email != nil:
			contactHash = HashContact(*info.Email)
		}
	}

	return &TranscriptRecord{
		Version:        recordVersion,
		ConversationID: in.ConversationID,
		OrgID:          in.OrgID,
		LeadID:         in.LeadID,
		ContactHash:    contactHash,
		ArchivedAt:     now,
		MessageCount:   len(msgs),
		Outcome:        outcome,
		Messages:       msgs,
	}
}
