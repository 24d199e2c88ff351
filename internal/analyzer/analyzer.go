package analyzer

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

var analyzerTracer = otel.Tracer("leadanalyzer/analyzer")

// Analyzer scores conversations. It only holds immutable configuration and
// is safe for concurrent use.
type Analyzer struct {
	logger     *logging.Logger
	catalog    []ServiceCategory
	exclusions map[string]struct{}
}

// Option configures an Analyzer.
type Option func(*analyzerConfig)

type analyzerConfig struct {
	catalog        []ServiceCategory
	nameExclusions []string
}

// WithServiceCatalog replaces the default service taxonomy.
func WithServiceCatalog(catalog []ServiceCategory) Option {
	return func(c *analyzerConfig) {
		if len(catalog) > 0 {
			c.catalog = catalog
		}
	}
}

// WithNameExclusions adds capitalized phrases (brand names, products) that
// must never be taken for a person's name.
func WithNameExclusions(phrases ...string) Option {
	return func(c *analyzerConfig) {
		c.nameExclusions = append(c.nameExclusions, phrases...)
	}
}

// New creates an Analyzer.
func New(logger *logging.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	cfg := analyzerConfig{catalog: DefaultServiceCatalog()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Analyzer{
		logger:     logger,
		catalog:    foldCatalog(cfg.catalog),
		exclusions: buildExclusions(cfg.nameExclusions),
	}
}

var defaultAnalyzer = New(logging.Discard())

// Analyze scores a conversation with the default configuration.
func Analyze(messages []Message, latestResponse string) (*LeadAnalysis, error) {
	return defaultAnalyzer.Analyze(context.Background(), messages, latestResponse)
}

// Analyze scores one conversation snapshot. messages are read, never mutated;
// latestResponse is the assistant reply not yet appended to the history.
func (a *Analyzer) Analyze(ctx context.Context, messages []Message, latestResponse string) (*LeadAnalysis, error) {
	_, span := analyzerTracer.Start(ctx, "leadanalyzer.analyze")
	defer span.End()

	if err := Validate(messages); err != nil {
		span.RecordError(err)
		return nil, err
	}

	raw := corpus(messages, latestResponse)
	folded := newFoldedText(raw)

	company := detectCompany(raw)
	info := LeadInfo{
		Name:    extractName(raw, a.exclusions, company),
		Email:   extractEmail(raw),
		Phone:   extractPhone(raw),
		Service: detectService(folded, a.catalog),
		Company: company,
	}

	var b Breakdown
	if info.Name != nil {
		b.Contact += 10
	}
	if info.Email != nil {
		b.Contact += 15
	}
	if info.Phone != nil {
		b.Contact += 15
	}
	b.Intent = scoreIntent(folded)
	b.Urgency, info.Urgency = scoreUrgency(folded)
	b.Budget = scoreBudget(folded)
	if info.Service != nil {
		b.Service = serviceFlat
	}
	b.Momentum = scoreMomentum(messages)
	b.Total = b.Contact + b.Intent + b.Urgency + b.Budget + b.Service + b.Momentum

	signals := deriveSignals(info, b)
	isHot := signals.HasContactInfo &&
		(signals.ShowsIntent || signals.ShowsUrgency || signals.IsQualified) &&
		b.Total >= hotThreshold
	score := min(b.Total, MaxScore)

	analysis := &LeadAnalysis{
		IsHot:      isHot,
		Score:      score,
		Signals:    signals,
		Confidence: confidence(signals, len(messages)),
		Reason:     buildReason(isHot, signals, info, b, score),
		Breakdown:  b,
	}
	if !info.empty() {
		analysis.Info = &info
	}

	span.SetAttributes(
		attribute.Int("lead.score", score),
		attribute.Bool("lead.hot", isHot),
		attribute.Int("lead.messages", len(messages)),
	)
	a.logger.Debug("lead analysis breakdown",
		"contact", b.Contact,
		"intent", b.Intent,
		"urgency", b.Urgency,
		"budget", b.Budget,
		"service", b.Service,
		"momentum", b.Momentum,
		"total", b.Total,
		"is_hot", isHot,
	)
	return analysis, nil
}

// corpus joins the user turns with the latest reply.
func corpus(messages []Message, latestResponse string) string {
	var sb strings.Builder
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	sb.WriteString(latestResponse)
	return sb.String()
}

func deriveSignals(info LeadInfo, b Breakdown) Signals {
	hasName := info.Name != nil
	hasEmail := info.Email != nil
	hasPhone := info.Phone != nil
	return Signals{
		HasContactInfo:  (hasName && (hasEmail || hasPhone)) || (!hasName && hasEmail && hasPhone),
		ShowsIntent:     b.Intent >= 15,
		ShowsUrgency:    info.Urgency == UrgencyHigh || info.Urgency == UrgencyMedium,
		MentionsService: info.Service != nil,
		MentionsBudget:  b.Budget > 0,
		IsQualified:     b.Contact >= 25 && b.Intent >= 15,
	}
}

func confidence(s Signals, messageCount int) int {
	c := 50
	if s.HasContactInfo {
		c += 25
	}
	if s.ShowsIntent {
		c += 15
	}
	if messageCount >= 5 {
		c += 10
	}
	return min(c, 100)
}
