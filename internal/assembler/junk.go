package assembler

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinChunkRunes is the shortest trimmed chunk that can carry useful context.
const MinChunkRunes = 30

// maxSymbolRatio is the largest tolerated share of non-alphanumeric, non-space runes.
const maxSymbolRatio = 0.5

// JunkFilter flags scraped boilerplate: short fragments, symbol soup and denylisted text.
type JunkFilter struct {
	patterns []*regexp.Regexp
}

// NewJunkFilter compiles the denylist patterns.
func NewJunkFilter(patterns []string) (*JunkFilter, error) {
	f := &JunkFilter{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid junk pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// IsJunk reports whether text should be left out of the context.
func (f *JunkFilter) IsJunk(text string) bool {
	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) < MinChunkRunes {
		return true
	}
	if symbolRatio(t) > maxSymbolRatio {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// symbolRatio is the fraction of non-whitespace runes that are neither letters nor digits.
func symbolRatio(s string) float64 {
	var total, symbols int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			symbols++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(symbols) / float64(total)
}
