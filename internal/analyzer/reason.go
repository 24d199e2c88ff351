package analyzer

import (
	"fmt"
	"strings"
)

const (
	hotThreshold  = 50
	warmThreshold = 35
)

// MaxScore is the ceiling of LeadAnalysis.Score.
const MaxScore = 170

// buildReason renders the Spanish explanation shown to operators.
func buildReason(isHot bool, signals Signals, info LeadInfo, b Breakdown, score int) string {
	who := identity(info)
	switch {
	case isHot:
		var details []string
		details = append(details, "urgencia "+string(info.Urgency))
		if signals.ShowsIntent {
			details = append(details, "intención de compra clara")
		}
		if info.Service != nil {
			details = append(details, "interés en "+*info.Service)
		}
		return fmt.Sprintf("Lead caliente (%d pts): %s compartió sus datos de contacto; %s.",
			score, who, strings.Join(details, ", "))
	case !signals.HasContactInfo:
		return fmt.Sprintf("Aún no es lead: falta información de contacto (%d pts, urgencia %s).",
			score, info.Urgency)
	case b.Total >= warmThreshold:
		missing := "no muestra intención ni urgencia suficientes"
		if signals.ShowsIntent || signals.ShowsUrgency || signals.IsQualified {
			missing = fmt.Sprintf("no alcanza los %d pts requeridos", hotThreshold)
		}
		return fmt.Sprintf("Lead tibio (%d pts): %s tiene datos de contacto pero %s.", score, who, missing)
	default:
		return fmt.Sprintf("No califica (%d pts): %s dejó datos de contacto pero la intención es baja (intención %d, urgencia %s).",
			score, who, b.Intent, info.Urgency)
	}
}

func identity(info LeadInfo) string {
	switch {
	case info.Name != nil:
		return *info.Name
	case info.Email != nil:
		return *info.Email
	case info.Phone != nil:
		return *info.Phone
	default:
		return "el prospecto"
	}
}
