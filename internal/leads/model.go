package leads

import (
	"strings"
	"time"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
)

// Lead is the persisted view of the latest analysis of one conversation.
type Lead struct {
	ID             string     `json:"id"`
	OrgID          string     `json:"org_id"`
	ConversationID string     `json:"conversation_id"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Service        string     `json:"service,omitempty"`
	Company        string     `json:"company,omitempty"`
	Urgency        string     `json:"urgency"`
	Score          int        `json:"score"`
	Confidence     int        `json:"confidence"`
	IsHot          bool       `json:"is_hot"`
	Classification string     `json:"classification"`
	Signals        []string   `json:"signals"`
	Reason         string     `json:"reason"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UpsertLeadRequest records an analysis against a conversation.
type UpsertLeadRequest struct {
	OrgID          string
	ConversationID string
	Analysis       *analyzer.LeadAnalysis
}

// Validate validates the upsert request
func (r *UpsertLeadRequest) Validate() error {
	if strings.TrimSpace(r.OrgID) == "" {
		return ErrMissingOrgID
	}
	if strings.TrimSpace(r.ConversationID) == "" {
		return ErrMissingConversation
	}
	if r.Analysis == nil || r.Analysis.Info == nil {
		return ErrNothingToStore
	}
	return nil
}

// fields flattens the analysis into column values.
func (r *UpsertLeadRequest) fields() Lead {
	a := r.Analysis
	signals := a.Signals.Active()
	if signals == nil {
		signals = []string{}
	}
	return Lead{
		OrgID:          r.OrgID,
		ConversationID: r.ConversationID,
		Name:           deref(a.Info.Name),
		Email:          deref(a.Info.Email),
		Phone:          deref(a.Info.Phone),
		Service:        deref(a.Info.Service),
		Company:        deref(a.Info.Company),
		Urgency:        string(a.Info.Urgency),
		Score:          a.Score,
		Confidence:     a.Confidence,
		IsHot:          a.IsHot,
		Classification: a.Classification(),
		Signals:        signals,
		Reason:         a.Reason,
	}
}

// ListLeadsFilter narrows ListByOrg results.
type ListLeadsFilter struct {
	Limit          int
	Offset         int
	HotOnly        bool
	Classification string // "hot", "warm", "cold" or empty for all
	MinScore       int
}

func (f ListLeadsFilter) matches(l *Lead) bool {
	if f.HotOnly && !l.IsHot {
		return false
	}
	if f.Classification != "" && l.Classification != f.Classification {
		return false
	}
	return l.Score >= f.MinScore
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mergeString keeps the previous value when the new analysis lost a field.
func mergeString(prev, next string) string {
	if next == "" {
		return prev
	}
	return next
}
