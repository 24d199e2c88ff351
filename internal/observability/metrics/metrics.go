package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for lead analysis and notification flows.
type LeadMetrics struct {
	analysesTotal    *prometheus.CounterVec
	score            prometheus.Histogram
	analyzeLatency   prometheus.Histogram
	notifyTotal      *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadanalyzer",
			Subsystem: "leads",
			Name:      "analyses_total",
			Help:      "Total conversation analyses by classification",
		}, []string{"classification"}),
		score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadanalyzer",
			Subsystem: "leads",
			Name:      "score",
			Help:      "Distribution of capped lead scores",
			Buckets:   []float64{10, 20, 35, 50, 75, 100, 130, 170},
		}),
		analyzeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadanalyzer",
			Subsystem: "leads",
			Name:      "analyze_latency_seconds",
			Help:      "Latency of the analyze request pipeline",
			Buckets:   prometheus.DefBuckets,
		}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadanalyzer",
			Subsystem: "notify",
			Name:      "total",
			Help:      "Hot-lead notifications by channel and outcome",
		}, []string{"channel", "status"}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadanalyzer",
			Subsystem: "notify",
			Name:      "rate_limited_total",
			Help:      "Notifications suppressed by the per-tenant rate limit",
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysesTotal, m.score, m.analyzeLatency, m.notifyTotal, m.rateLimitedTotal)
	return m
}

func (m *LeadMetrics) ObserveAnalysis(classification string, score int) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(classification).Inc()
	m.score.Observe(float64(score))
}

func (m *LeadMetrics) ObserveAnalyzeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.analyzeLatency.Observe(seconds)
}

func (m *LeadMetrics) ObserveNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notifyTotal.WithLabelValues(channel, status).Inc()
}

func (m *LeadMetrics) ObserveRateLimited(channel string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(channel).Inc()
}
