package notify

import (
	"time"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
)

const (
	// SourceTag identifies notifications produced by this service.
	SourceTag = "lead-analyzer"

	notProvided  = "No proporcionado"
	notSpecified = "No especificado"

	contextMessages = 4
)

// LeadNotification is the flat record delivered to operators for a hot lead.
type LeadNotification struct {
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Service     string             `json:"service"`
	Company     string             `json:"company,omitempty"`
	Urgency     string             `json:"urgency"`
	Score       int                `json:"score"`
	Confidence  int                `json:"confidence"`
	Context     []analyzer.Message `json:"context"`
	Signals     analyzer.Signals   `json:"signals"`
	Reason      string             `json:"reason"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Source      string             `json:"source"`
}

// FormatLeadNotification builds the operator notification for an analysis.
// It returns nil when nothing was extracted from the conversation.
func FormatLeadNotification(analysis *analyzer.LeadAnalysis, messages []analyzer.Message, now time.Time) *LeadNotification {
	if analysis == nil || analysis.Info == nil {
		return nil
	}
	info := analysis.Info

	start := max(len(messages)-contextMessages, 0)
	recent := make([]analyzer.Message, len(messages)-start)
	copy(recent, messages[start:])

	return &LeadNotification{
		Name:        valueOr(info.Name, notProvided),
		Email:       valueOr(info.Email, notProvided),
		Phone:       valueOr(info.Phone, notProvided),
		Service:     valueOr(info.Service, notSpecified),
		Company:     valueOr(info.Company, ""),
		Urgency:     string(info.Urgency),
		Score:       analysis.Score,
		Confidence:  analysis.Confidence,
		Context:     recent,
		Signals:     analysis.Signals,
		Reason:      analysis.Reason,
		GeneratedAt: now.UTC(),
		Source:      SourceTag,
	}
}

// HasEmail reports whether an email address was captured.
func (n *LeadNotification) HasEmail() bool {
	return n != nil && n.Email != "" && n.Email != notProvided
}

// HasPhone reports whether a phone number was captured.
func (n *LeadNotification) HasPhone() bool {
	return n != nil && n.Phone != "" && n.Phone != notProvided
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
