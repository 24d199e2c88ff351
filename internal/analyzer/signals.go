package analyzer

import (
	"regexp"
	"strings"
)

// weightedPhrases is a phrase class: each phrase that occurs adds weight once.
type weightedPhrases struct {
	weight  int
	phrases []string
}

func (w weightedPhrases) score(text foldedText) int {
	total := 0
	for _, p := range w.phrases {
		if text.has(p) {
			total += w.weight
		}
	}
	return total
}

func scoreClasses(text foldedText, classes []weightedPhrases) int {
	total := 0
	for _, c := range classes {
		total += c.score(text)
	}
	return total
}

const (
	intentCap   = 40
	urgencyCap  = 30
	budgetCap   = 20
	serviceFlat = 15

	urgencyHighLevel   = 25
	urgencyMediumLevel = 15

	momentumMediumLen    = 6
	momentumLongLen      = 10
	momentumRecentWindow = 3
)

var intentClasses = []weightedPhrases{
	{weight: 15, phrases: []string{"necesito", "me interesa", "cuando empezamos", "hagamos", "empecemos", "cuanto tardan"}},
	{weight: 10, phrases: []string{"quiero", "quisiera", "estoy buscando", "me gustaria", "pensando en"}},
	{weight: 8, phrases: []string{"como funciona", "que necesitan", "cual es el proceso"}},
}

var urgencyClasses = []weightedPhrases{
	{weight: 25, phrases: []string{"urgente", "ya", "hoy", "inmediato", "esta semana", "lo antes posible", "cuanto antes", "asap"}},
	{weight: 15, phrases: []string{"pronto", "proxima semana", "este mes"}},
	{weight: 5, phrases: []string{"futuro", "proximamente", "mas adelante"}},
}

var budgetClasses = []weightedPhrases{
	{weight: 15, phrases: []string{"precio", "cuanto cuesta", "costo", "cotizacion", "presupuesto", "inversion", "valor", "tarifa", "cuanto sale", "cuanto cobran"}},
}

func scoreIntent(text foldedText) int {
	return min(scoreClasses(text, intentClasses), intentCap)
}

// scoreUrgency returns the capped score and the level derived from the raw score.
func scoreUrgency(text foldedText) (int, Urgency) {
	raw := scoreClasses(text, urgencyClasses)
	level := UrgencyLow
	switch {
	case raw >= urgencyHighLevel:
		level = UrgencyHigh
	case raw >= urgencyMediumLevel:
		level = UrgencyMedium
	}
	return min(raw, urgencyCap), level
}

func scoreBudget(text foldedText) int {
	return min(scoreClasses(text, budgetClasses), budgetCap)
}

var (
	affirmativeWords = []string{"si", "claro", "perfecto", "excelente", "me gusta", "me parece"}
	tenDigitRun      = regexp.MustCompile(`\d{10}`)
	disclosureCues   = []string{"me llamo", "soy "}
)

// scoreMomentum rewards longer conversations and recent engagement.
func scoreMomentum(messages []Message) int {
	score := 0
	if len(messages) >= momentumMediumLen {
		score += 10
	}
	if len(messages) >= momentumLongLen {
		score += 5
	}

	recent := recentUserMessages(messages, momentumRecentWindow)
	affirmed, disclosed := false, false
	for _, content := range recent {
		folded := newFoldedText(content)
		for _, w := range affirmativeWords {
			if folded.has(w) {
				affirmed = true
				break
			}
		}
		if disclosesContact(content, folded.text) {
			disclosed = true
		}
	}
	if affirmed {
		score += 10
	}
	if disclosed {
		score += 15
	}
	return score
}

func disclosesContact(raw, folded string) bool {
	if emailPattern.MatchString(raw) || tenDigitRun.MatchString(raw) {
		return true
	}
	for _, cue := range disclosureCues {
		if strings.Contains(folded, cue) {
			return true
		}
	}
	return false
}

// recentUserMessages returns the content of the last n user turns, oldest first.
func recentUserMessages(messages []Message, n int) []string {
	out := make([]string, 0, n)
	for i := len(messages) - 1; i >= 0 && len(out) < n; i-- {
		if messages[i].Role == RoleUser {
			out = append(out, messages[i].Content)
		}
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
