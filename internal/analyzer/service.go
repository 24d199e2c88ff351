package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ServiceCategory maps a display name to the keywords that select it.
// Keywords are matched against folded (lowercase, accent-free) text.
type ServiceCategory struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultServiceCatalog is the built-in service taxonomy, in priority order.
func DefaultServiceCatalog() []ServiceCategory {
	return []ServiceCategory{
		{Name: "Desarrollo Web", Keywords: []string{"web", "sitio", "pagina", "landing", "ecommerce", "e-commerce", "tienda en linea", "tienda online", "portal"}},
		{Name: "App Móvil", Keywords: []string{"app", "aplicacion", "movil", "ios", "android"}},
		{Name: "Chatbot IA", Keywords: []string{"chatbot", "bot", "ia", "inteligencia artificial", "asistente virtual", "gpt"}},
		{Name: "Automatización", Keywords: []string{"automatiz", "workflow", "api", "integracion", "flujo", "zapier"}},
		{Name: "Ciberseguridad", Keywords: []string{"seguridad", "ciberseguridad", "hackeo", "hacker", "pentest", "vulnerabilidad", "firewall"}},
		{Name: "Sistema Personalizado", Keywords: []string{"sistema", "erp", "crm", "inventario", "software a medida", "punto de venta"}},
		{Name: "Consultoría IT", Keywords: []string{"consultoria", "asesoria", "estrategia", "arquitectura", "transformacion digital"}},
	}
}

// foldCatalog returns a copy of catalog with every keyword folded.
func foldCatalog(catalog []ServiceCategory) []ServiceCategory {
	out := make([]ServiceCategory, 0, len(catalog))
	for _, cat := range catalog {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		keywords := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			if kw = foldText(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			continue
		}
		out = append(out, ServiceCategory{Name: name, Keywords: keywords})
	}
	return out
}

func detectService(text foldedText, catalog []ServiceCategory) *string {
	for _, cat := range catalog {
		for _, kw := range cat.Keywords {
			if text.hasStem(kw) {
				return strPtr(cat.Name)
			}
		}
	}
	return nil
}

// ---------- company ----------

const (
	companyMinLen = 2
	companyMaxLen = 30
)

var (
	companyPhrase = `(\p{Lu}[\p{L}\p{N}&.'-]*(?:[ \t]+\p{Lu}[\p{L}\p{N}&.'-]*){0,3})`

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(wordBoundaryPrefix +
			`(?i:mi[ \t]+(?:empresa|negocio|compa[ñn][ií]a)|trabajo[ \t]+(?:en|de|para))` +
			`(?:[ \t]+(?i:es|se[ \t]+llama))?[ \t]*:?[ \t]+` + companyPhrase),
		regexp.MustCompile(wordBoundaryPrefix +
			`(?i:tenemos|somos)[ \t]+(?:(?i:una|un)[ \t]+)?` + companyPhrase +
			`[ \t]*,?[ \t]+(?i:que|dedicad[ao]|enfocad[ao])` + wordBoundarySuffix),
	}
)

func detectCompany(text string) *string {
	for _, pattern := range companyPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			company := strings.Trim(strings.TrimSpace(match[1]), ".,")
			n := utf8.RuneCountInString(company)
			if n < companyMinLen || n > companyMaxLen {
				continue
			}
			return &company
		}
	}
	return nil
}
