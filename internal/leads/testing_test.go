package leads

import "github.com/wolfman30/lead-analyzer/internal/analyzer"

func strPtr(s string) *string { return &s }

func hotAnalysis() *analyzer.LeadAnalysis {
	return &analyzer.LeadAnalysis{
		IsHot: true,
		Score: 120,
		Info: &analyzer.LeadInfo{
			Name:    strPtr("Ana López"),
			Email:   strPtr("ana@empresa.com"),
			Phone:   strPtr("9511234567"),
			Service: strPtr("Chatbot IA"),
			Urgency: analyzer.UrgencyHigh,
		},
		Signals:    analyzer.Signals{HasContactInfo: true, ShowsIntent: true, ShowsUrgency: true},
		Confidence: 90,
		Reason:     "Lead caliente",
	}
}

func emailOnlyAnalysis() *analyzer.LeadAnalysis {
	return &analyzer.LeadAnalysis{
		Score: 30,
		Info: &analyzer.LeadInfo{
			Email:   strPtr("otro@empresa.com"),
			Urgency: analyzer.UrgencyLow,
		},
		Confidence: 50,
		Reason:     "Aún no es lead",
	}
}
