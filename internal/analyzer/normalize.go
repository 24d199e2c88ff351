package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// shortTermMaxLen is the longest keyword that must match a whole word.
// Longer keywords match as substrings so stems like "automatiz" still hit.
const shortTermMaxLen = 3

// foldedText is a lowercased, accent-free view of some text plus its word set.
type foldedText struct {
	text   string
	tokens map[string]struct{}
}

func newFoldedText(raw string) foldedText {
	text := foldText(raw)
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = struct{}{}
	}
	return foldedText{text: text, tokens: tokens}
}

// has reports whether term occurs in the text. Terms must already be folded.
func (f foldedText) has(term string) bool {
	if term == "" {
		return false
	}
	if len(term) <= shortTermMaxLen && !strings.ContainsRune(term, ' ') {
		_, ok := f.tokens[term]
		return ok
	}
	return strings.Contains(f.text, term)
}

// hasStem is has with short terms also matching as a word prefix, so "app"
// hits "apps" while "ia" still misses "media".
func (f foldedText) hasStem(term string) bool {
	if f.has(term) {
		return true
	}
	if term == "" || len(term) > shortTermMaxLen || strings.ContainsRune(term, ' ') {
		return false
	}
	for tok := range f.tokens {
		if strings.HasPrefix(tok, term) {
			return true
		}
	}
	return false
}

// foldText lowercases s and strips combining marks ("Cotización" -> "cotizacion").
func foldText(s string) string {
	lower := strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}

// titleWord upper-cases the first rune and lower-cases the rest.
func titleWord(word string) string {
	if word == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(word)
	if first == utf8.RuneError || size == 0 {
		return word
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
}

func titleCase(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}
