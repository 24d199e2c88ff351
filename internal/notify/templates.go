package notify

import (
	"fmt"
	"strings"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
)

const maxContextChars = 280

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func emailSubject(n *LeadNotification, tenant string) string {
	return fmt.Sprintf("🔥 Lead caliente (%d pts) - %s", n.Score, displayName(n, tenant))
}

func emailBody(n *LeadNotification, tenant string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nuevo lead caliente para %s\n\n", tenant)
	fmt.Fprintf(&b, "Nombre: %s\n", n.Name)
	fmt.Fprintf(&b, "Email: %s\n", n.Email)
	fmt.Fprintf(&b, "Teléfono: %s\n", n.Phone)
	fmt.Fprintf(&b, "Servicio: %s\n", n.Service)
	if n.Company != "" {
		fmt.Fprintf(&b, "Empresa: %s\n", n.Company)
	}
	fmt.Fprintf(&b, "Urgencia: %s\n", n.Urgency)
	fmt.Fprintf(&b, "Puntaje: %d (confianza %d%%)\n\n", n.Score, n.Confidence)
	fmt.Fprintf(&b, "%s\n", n.Reason)
	if len(n.Context) > 0 {
		b.WriteString("\nÚltimos mensajes:\n")
		for _, m := range n.Context {
			fmt.Fprintf(&b, "- %s: %s\n", roleLabel(m.Role), truncate(m.Content))
		}
	}
	fmt.Fprintf(&b, "\nGenerado %s por %s\n", n.GeneratedAt.Format("2006-01-02 15:04 MST"), n.Source)
	return b.String()
}

func telegramText(n *LeadNotification, tenant string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 *Lead caliente* (%d pts) · %s\n\n", n.Score, markdownEscaper.Replace(tenant))
	fmt.Fprintf(&b, "*Nombre:* %s\n", markdownEscaper.Replace(n.Name))
	fmt.Fprintf(&b, "*Email:* %s\n", markdownEscaper.Replace(n.Email))
	fmt.Fprintf(&b, "*Teléfono:* %s\n", markdownEscaper.Replace(n.Phone))
	fmt.Fprintf(&b, "*Servicio:* %s\n", markdownEscaper.Replace(n.Service))
	fmt.Fprintf(&b, "*Urgencia:* %s\n\n", n.Urgency)
	fmt.Fprintf(&b, "_%s_", markdownEscaper.Replace(n.Reason))
	return b.String()
}

func whatsAppBody(n *LeadNotification, tenant string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 Lead caliente para %s (%d pts)\n", tenant, n.Score)
	fmt.Fprintf(&b, "%s · %s · %s\n", n.Name, n.Phone, n.Email)
	fmt.Fprintf(&b, "Servicio: %s · Urgencia: %s", n.Service, n.Urgency)
	if n.HasPhone() {
		if e164, err := FormatE164(n.Phone); err == nil {
			fmt.Fprintf(&b, "\nContactar: https://wa.me/%s", strings.TrimPrefix(e164, "+"))
		}
	}
	return b.String()
}

func displayName(n *LeadNotification, tenant string) string {
	switch {
	case n.Name != notProvided:
		return n.Name
	case n.Email != notProvided:
		return n.Email
	case n.Phone != notProvided:
		return n.Phone
	default:
		return tenant
	}
}

func roleLabel(role analyzer.Role) string {
	if role == analyzer.RoleAssistant {
		return "Asistente"
	}
	return "Prospecto"
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxContextChars {
		return s
	}
	return string(r[:maxContextChars]) + "…"
}
