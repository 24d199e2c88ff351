package analyzer

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation, oldest first.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Urgency is the urgency level derived from the conversation text.
type Urgency string

const (
	UrgencyHigh   Urgency = "alta"
	UrgencyMedium Urgency = "media"
	UrgencyLow    Urgency = "baja"
)

// LeadInfo holds the structured facts extracted from a conversation.
// Optional fields are nil when nothing matched.
type LeadInfo struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Service *string `json:"service,omitempty"`
	Company *string `json:"company,omitempty"`
	Urgency Urgency `json:"urgency"`
}

// empty reports whether no optional field was extracted.
func (i *LeadInfo) empty() bool {
	return i.Name == nil && i.Email == nil && i.Phone == nil && i.Service == nil && i.Company == nil
}

// Signals are the boolean features used by the hot-lead decision rule.
type Signals struct {
	HasContactInfo  bool `json:"hasContactInfo"`
	ShowsIntent     bool `json:"showsIntent"`
	ShowsUrgency    bool `json:"showsUrgency"`
	MentionsService bool `json:"mentionsService"`
	MentionsBudget  bool `json:"mentionsBudget"`
	IsQualified     bool `json:"isQualified"`
}

// Active returns the names of the signals that are set, in a stable order.
func (s Signals) Active() []string {
	var out []string
	if s.HasContactInfo {
		out = append(out, "hasContactInfo")
	}
	if s.ShowsIntent {
		out = append(out, "showsIntent")
	}
	if s.ShowsUrgency {
		out = append(out, "showsUrgency")
	}
	if s.MentionsService {
		out = append(out, "mentionsService")
	}
	if s.MentionsBudget {
		out = append(out, "mentionsBudget")
	}
	if s.IsQualified {
		out = append(out, "isQualified")
	}
	return out
}

// Breakdown carries the per-dimension sub-scores behind an analysis.
type Breakdown struct {
	Contact  int `json:"contact"`
	Intent   int `json:"intent"`
	Urgency  int `json:"urgency"`
	Budget   int `json:"budget"`
	Service  int `json:"service"`
	Momentum int `json:"momentum"`
	// Total is the uncapped sum of all sub-scores.
	Total int `json:"total"`
}

// LeadAnalysis is the result of scoring one conversation snapshot.
type LeadAnalysis struct {
	IsHot      bool      `json:"isHot"`
	Score      int       `json:"score"`
	Info       *LeadInfo `json:"info"`
	Signals    Signals   `json:"signals"`
	Confidence int       `json:"confidence"`
	Reason     string    `json:"reason"`

	Breakdown Breakdown `json:"-"`
}

// Classification buckets an analysis as hot, warm or cold.
func (a *LeadAnalysis) Classification() string {
	switch {
	case a == nil:
		return ClassCold
	case a.IsHot:
		return ClassHot
	case a.Signals.HasContactInfo && a.Breakdown.Total >= warmThreshold:
		return ClassWarm
	default:
		return ClassCold
	}
}

const (
	ClassHot  = "hot"
	ClassWarm = "warm"
	ClassCold = "cold"
)

func strPtr(s string) *string {
	return &s
}
