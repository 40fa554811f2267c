package ranking

import (
	"regexp"
	"strings"
	"unicode"
)

// AnalyzedQuery is a query split into match terms and quoted phrases.
type AnalyzedQuery struct {
	Original string
	Terms    []string
	Phrases  []string
}

var phraseRegex = regexp.MustCompile(`"([^"]+)"`)

// stopTerms are skipped when matching; they carry no signal in support questions.
var stopTerms = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "can": {}, "do": {}, "does": {}, "for": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "my": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "what": {}, "when": {}, "why": {}, "with": {}, "you": {},
}

// AnalyzeQuery extracts double-quoted phrases and lowercased terms from query.
// Terms inside phrases are also returned as terms; duplicates and stop terms are dropped.
func AnalyzeQuery(query string) *AnalyzedQuery {
	aq := &AnalyzedQuery{Original: query}
	for _, m := range phraseRegex.FindAllStringSubmatch(query, -1) {
		if p := strings.ToLower(strings.TrimSpace(m[1])); p != "" {
			aq.Phrases = append(aq.Phrases, p)
		}
	}
	seen := make(map[string]bool)
	for _, word := range strings.Fields(phraseRegex.ReplaceAllString(query, " $1 ")) {
		t := normalizeToken(word)
		if t == "" || seen[t] {
			continue
		}
		if _, stop := stopTerms[t]; stop {
			continue
		}
		seen[t] = true
		aq.Terms = append(aq.Terms, t)
	}
	return aq
}

// normalizeToken lowercases and trims edge punctuation, keeping inner hyphens and dots (e.g. "12.5", "sip-trunk").
func normalizeToken(token string) string {
	return strings.TrimFunc(strings.ToLower(token), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// CountMatchingTerms counts how many terms are found in text.
func CountMatchingTerms(terms []string, text string) int {
	count := 0
	textLower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(textLower, term) {
			count++
		}
	}
	return count
}

// TermsInOrder reports whether every term appears in text in the given order.
func TermsInOrder(terms []string, text string) bool {
	if len(terms) == 0 {
		return false
	}
	textLower := strings.ToLower(text)
	lastPos := -1
	for _, term := range terms {
		pos := strings.Index(textLower[lastPos+1:], term)
		if pos == -1 {
			return false
		}
		lastPos = lastPos + 1 + pos
	}
	return true
}

// CountOccurrences counts case-insensitive occurrences of term in text.
func CountOccurrences(term, text string) int {
	return strings.Count(strings.ToLower(text), strings.ToLower(term))
}
