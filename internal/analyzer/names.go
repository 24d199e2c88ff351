package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ---------- name patterns ----------

const (
	wordBoundaryPrefix = `(?:^|[^\p{L}\p{N}])`
	wordBoundarySuffix = `(?:[^\p{L}\p{N}]|$)`
	anyNameWord        = `[\p{L}][\p{L}\p{M}'-]*`
	capNameWord        = `\p{Lu}[\p{L}\p{M}'-]+`
	strictCapWord      = `\p{Lu}\p{Ll}+`
	lowerNameWord      = `\p{Ll}[\p{Ll}\p{M}'-]+`
	inlineSpace        = `[ \t]+`
)

var (
	selfIntroRE = regexp.MustCompile(wordBoundaryPrefix +
		`(?i:me` + inlineSpace + `llamo|mi` + inlineSpace + `nombre` + inlineSpace + `es|puedes` + inlineSpace + `llamarme|soy)` +
		inlineSpace + `(` + anyNameWord + `(?:` + inlineSpace + anyNameWord + `)?)`)
	presentRE = regexp.MustCompile(wordBoundaryPrefix +
		`(` + capNameWord + `(?:` + inlineSpace + capNameWord + `)?)` + inlineSpace + `(?i:aqu[ií]|presente)` + wordBoundarySuffix)
	capitalPairRE = regexp.MustCompile(wordBoundaryPrefix +
		`(` + strictCapWord + inlineSpace + strictCapWord + `)` + wordBoundarySuffix)
	confirmationRE = regexp.MustCompile(wordBoundaryPrefix +
		`(?i:claro|s[ií]|ok|okay|vale)[ \t]*[,.!:]?[ \t]+(?:(?i:soy)` + inlineSpace + `)?` +
		`(` + capNameWord + `(?:` + inlineSpace + capNameWord + `)?)`)
	beforeContactRE = regexp.MustCompile(wordBoundaryPrefix +
		`(` + capNameWord + `(?:` + inlineSpace + capNameWord + `)?)[ \t]*,?` + inlineSpace +
		`(?i:y)` + inlineSpace + `(?i:mi)` + inlineSpace +
		`(?i:correo|e-?mail|tel[eé]fono|whatsapp|whats|cel(?:ular)?|n[uú]mero)`)
	lowercaseCueRE = regexp.MustCompile(wordBoundaryPrefix +
		`(?i:soy|nombre|llamo)[ \t]*:?` + inlineSpace + `(` + lowerNameWord + `)` + wordBoundarySuffix)
)

// nameRule is one strategy of the name extraction chain.
type nameRule struct {
	name     string
	patterns []*regexp.Regexp
	accept   func(candidate string, exclusions map[string]struct{}) (string, bool)
}

// nameRules are evaluated in order; the first accepted candidate wins.
var nameRules = []nameRule{
	{name: "self_introduction", patterns: []*regexp.Regexp{selfIntroRE, presentRE}, accept: acceptSelfIntroduction},
	{name: "capitalized_pair", patterns: []*regexp.Regexp{capitalPairRE}, accept: acceptCapitalizedPair},
	{name: "after_confirmation", patterns: []*regexp.Regexp{confirmationRE}, accept: acceptAfterConfirmation},
	{name: "before_contact_field", patterns: []*regexp.Regexp{beforeContactRE}, accept: acceptBeforeContactField},
	{name: "lowercase_cue", patterns: []*regexp.Regexp{lowercaseCueRE}, accept: acceptLowercaseCue},
}

// ---------- word lists (folded, accent-free) ----------

var introStopWords = wordSet(
	"de", "del", "la", "las", "el", "los", "lo", "le", "se", "un", "una", "unos", "unas",
	"y", "e", "o", "u", "que", "en", "con", "para", "por", "muy", "tu", "su", "sus", "mi", "mis",
	"al", "a", "yo", "es", "nuevo", "nueva", "cliente", "clienta", "usuario", "usuaria",
	"gracias", "interesado", "interesada", "dueno", "duena", "gerente", "encargado", "encargada",
	"administrador", "administradora", "emprendedor", "emprendedora", "estudiante", "parte",
	"como", "asi", "bien", "hola", "buenas", "buenos", "tambien", "aqui", "presente",
)

var sentenceStarters = wordSet(
	"hola", "buenos", "buenas", "gracias", "claro", "quisiera", "quiero", "necesito", "perfecto",
	"excelente", "me", "mi", "si", "ok", "vale", "por", "favor", "muchas", "saludos", "bien",
	"listo", "genial", "hagamos", "empecemos", "cuando", "cuanto", "como", "que", "cual",
	"tengo", "tenemos", "somos", "estoy", "estamos", "soy", "puedes", "podemos", "usted",
	"nuestro", "nuestra", "mas", "el", "la", "los", "las", "un", "una", "este", "esta",
)

var fillerWords = wordSet(
	"gracias", "perfecto", "favor", "necesito", "quiero", "quisiera", "me", "mi", "claro", "si",
	"ok", "vale", "excelente", "bueno", "buena", "hola", "adelante", "entiendo", "listo", "por",
	"con", "de", "que", "el", "la", "permiteme", "dime", "te", "tu", "usted", "genial", "muchas",
	"estoy", "tengo", "puedo", "podemos", "seria", "suena", "asi", "esta", "este",
)

var contactTerms = []string{
	"gmail", "hotmail", "outlook", "yahoo", "icloud", "live", "correo", "email", "mail",
	"telefono", "whatsapp", "whats", "numero", "celular", "cel",
}

var nonNameWords = wordSet(
	"gracias", "cliente", "clienta", "usuario", "usuaria", "nuevo", "nueva", "interesado",
	"interesada", "de", "del", "el", "la", "los", "las", "un", "una", "es", "y", "que", "en",
	"con", "para", "por", "yo", "muy", "bien", "mal", "dueno", "duena", "gerente", "encargado",
	"encargada", "estudiante", "emprendedor", "emprendedora", "parte", "alguien", "persona",
	"empresa", "negocio", "completo", "completa", "hola", "asi",
)

// defaultNameExclusions are capitalized pairs that are not people.
var defaultNameExclusions = []string{
	"desarrollo web", "app movil", "chatbot ia", "inteligencia artificial", "consultoria it",
	"sistema personalizado", "open ai", "chat gpt", "google gemini", "google cloud",
	"microsoft azure", "amazon web", "meta ai", "claude ai", "buenos dias", "buenas tardes",
	"buenas noches", "muchas gracias", "feliz dia", "lead analyzer", "asistente virtual",
	"agencia digital", "soluciones digitales", "mercado libre", "tienda online", "landing page",
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func buildExclusions(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultNameExclusions)+len(extra))
	for _, phrase := range defaultNameExclusions {
		set[foldText(phrase)] = struct{}{}
	}
	for _, phrase := range extra {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		set[foldText(phrase)] = struct{}{}
	}
	return set
}

// ---------- extraction ----------

// extractName runs the rule chain over text. A candidate that is part of the
// detected company is skipped.
func extractName(text string, exclusions map[string]struct{}, company *string) *string {
	companyWords := ""
	if company != nil {
		companyWords = " " + foldText(*company) + " "
	}
	for _, rule := range nameRules {
		if name, ok := rule.apply(text, exclusions, companyWords); ok {
			return strPtr(name)
		}
	}
	return nil
}

func (r nameRule) apply(text string, exclusions map[string]struct{}, companyWords string) (string, bool) {
	for _, pattern := range r.patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			name, ok := r.accept(strings.TrimSpace(match[1]), exclusions)
			if !ok {
				continue
			}
			if companyWords != "" && strings.Contains(companyWords, " "+foldText(name)+" ") {
				continue
			}
			return name, true
		}
	}
	return "", false
}

func acceptSelfIntroduction(candidate string, _ map[string]struct{}) (string, bool) {
	kept := make([]string, 0, 2)
	for _, word := range strings.Fields(candidate) {
		if _, stop := introStopWords[foldText(word)]; stop {
			break
		}
		if utf8.RuneCountInString(word) < 2 {
			break
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return "", false
	}
	return titleCase(strings.Join(kept, " ")), true
}

func acceptCapitalizedPair(candidate string, exclusions map[string]struct{}) (string, bool) {
	folded := foldText(candidate)
	if _, excluded := exclusions[folded]; excluded {
		return "", false
	}
	for _, word := range strings.Fields(folded) {
		if _, starter := sentenceStarters[word]; starter {
			return "", false
		}
	}
	return candidate, true
}

func acceptAfterConfirmation(candidate string, _ map[string]struct{}) (string, bool) {
	for _, word := range strings.Fields(foldText(candidate)) {
		if _, filler := fillerWords[word]; filler {
			return "", false
		}
	}
	return titleCase(candidate), true
}

func acceptBeforeContactField(candidate string, _ map[string]struct{}) (string, bool) {
	folded := foldText(candidate)
	for _, term := range contactTerms {
		if strings.Contains(folded, term) {
			return "", false
		}
	}
	for _, word := range strings.Fields(folded) {
		if _, starter := sentenceStarters[word]; starter {
			return "", false
		}
	}
	return titleCase(candidate), true
}

func acceptLowercaseCue(candidate string, _ map[string]struct{}) (string, bool) {
	if _, common := nonNameWords[foldText(candidate)]; common {
		return "", false
	}
	return titleWord(candidate), true
}
