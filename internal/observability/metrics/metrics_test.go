package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLeadMetricsObserve(t *testing.T) {
	m := NewLeadMetrics(prometheus.NewRegistry())
	m.ObserveAnalysis("hot", 120)
	m.ObserveAnalyzeLatency(0.002)
	m.ObserveNotification("email", "sent")
	m.ObserveRateLimited("whatsapp")
}

func TestLeadMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveAnalysis("hot", 120)
	m.ObserveAnalysis("hot", 60)
	m.ObserveAnalysis("cold", 10)
	m.ObserveNotification("telegram", "failed")

	if got := counterValue(t, m.analysesTotal.WithLabelValues("hot")); got != 2 {
		t.Fatalf("expected 2 hot analyses, got %v", got)
	}
	if got := counterValue(t, m.analysesTotal.WithLabelValues("cold")); got != 1 {
		t.Fatalf("expected 1 cold analysis, got %v", got)
	}
	if got := counterValue(t, m.notifyTotal.WithLabelValues("telegram", "failed")); got != 1 {
		t.Fatalf("expected 1 failed telegram notification, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, fam := range families {
		if fam.GetName() == "leadanalyzer_leads_score" {
			found = true
			if got := fam.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
				t.Fatalf("expected 3 score samples, got %d", got)
			}
		}
	}
	if !found {
		t.Fatal("score histogram not registered")
	}
}

func TestLeadMetricsNilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveAnalysis("hot", 1)
	m.ObserveAnalyzeLatency(0.1)
	m.ObserveNotification("email", "sent")
	m.ObserveRateLimited("whatsapp")
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetCounter().GetValue()
}
