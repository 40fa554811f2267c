package ranking

import (
	"context"
	"math"
	"regexp"
	"strings"
)

// LexicalConfig weights the lexical relevance signals.
type LexicalConfig struct {
	PhraseMatchScore        float64
	HeaderMatchScore        float64
	AllWordsInOrderScore    float64
	ScatteredWordsScore     float64
	MaxTFIDFMultiplier      float64
	PositionBoostThreshold  float64 // fraction of the passage counted as "early"
	PositionBoostMultiplier float64
}

// DefaultLexicalConfig returns the default weights.
func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{
		PhraseMatchScore:        120,
		HeaderMatchScore:        110,
		AllWordsInOrderScore:    90,
		ScatteredWordsScore:     70,
		MaxTFIDFMultiplier:      2.0,
		PositionBoostThreshold:  0.2,
		PositionBoostMultiplier: 1.2,
	}
}

// LexicalScorer is an offline relevance scorer used when no cross-encoder
// endpoint is configured. Quoted phrases, header matches and full term
// coverage in query order score highest; rare terms (IDF over the batch) and
// early matches boost the result.
type LexicalScorer struct {
	config LexicalConfig
}

// NewLexicalScorer creates a LexicalScorer with the default weights.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{config: DefaultLexicalConfig()}
}

// NewLexicalScorerWithConfig creates a LexicalScorer with custom weights.
func NewLexicalScorerWithConfig(cfg LexicalConfig) *LexicalScorer {
	return &LexicalScorer{config: cfg}
}

// Score scores each passage against query.
func (s *LexicalScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aq := AnalyzeQuery(query)
	stats := newBatchStats(aq.Terms, passages)
	scores := make([]float64, len(passages))
	for i, p := range passages {
		scores[i] = s.scorePassage(aq, p, stats)
	}
	return scores, nil
}

func (s *LexicalScorer) scorePassage(aq *AnalyzedQuery, passage string, stats *batchStats) float64 {
	if passage == "" || len(aq.Terms) == 0 {
		return 0
	}
	score := math.Max(s.scoreHeaderMatch(aq.Terms, passage), s.scoreTermMatches(aq.Terms, passage, stats))
	// Exact phrases stack on top of term coverage.
	phrase := 0.0
	for _, p := range aq.Phrases {
		phrase = math.Max(phrase, s.scorePhraseMatch(p, passage))
	}
	score += phrase

	if score > 0 {
		score *= s.positionMultiplier(aq, passage)
	}
	return score
}

func (s *LexicalScorer) scorePhraseMatch(phrase, passage string) float64 {
	count := CountOccurrences(phrase, passage)
	if count == 0 {
		return 0
	}
	return s.config.PhraseMatchScore + math.Min(float64(count-1)*5, 20)
}

func (s *LexicalScorer) scoreHeaderMatch(terms []string, passage string) float64 {
	best := 0.0
	for _, h := range detectHeaders(passage) {
		n := CountMatchingTerms(terms, h.text)
		if n == 0 {
			continue
		}
		levelBonus := 1.0 + (5.0-float64(h.level))*0.1
		best = math.Max(best, s.config.HeaderMatchScore*levelBonus*float64(n)/float64(len(terms)))
	}
	return best
}

func (s *LexicalScorer) scoreTermMatches(terms []string, passage string, stats *batchStats) float64 {
	matched := CountMatchingTerms(terms, passage)
	if matched == 0 {
		return 0
	}
	var base float64
	switch {
	case matched == len(terms) && TermsInOrder(terms, passage):
		base = s.config.AllWordsInOrderScore
	case matched == len(terms):
		base = s.config.ScatteredWordsScore
	default:
		base = s.config.ScatteredWordsScore * float64(matched) / float64(len(terms))
	}
	return base * s.tfidfMultiplier(terms, passage, stats)
}

func (s *LexicalScorer) tfidfMultiplier(terms []string, passage string, stats *batchStats) float64 {
	words := len(strings.Fields(passage))
	if words == 0 || stats.total == 0 {
		return 1
	}
	sum, n := 0.0, 0
	for _, term := range terms {
		count := CountOccurrences(term, passage)
		if count == 0 {
			continue
		}
		sum += float64(count) / float64(words) * stats.idf(term)
		n++
	}
	if n == 0 {
		return 1
	}
	return math.Min(1+sum/float64(n)*10, s.config.MaxTFIDFMultiplier)
}

func (s *LexicalScorer) positionMultiplier(aq *AnalyzedQuery, passage string) float64 {
	threshold := int(float64(len(passage)) * s.config.PositionBoostThreshold)
	if threshold < 100 {
		threshold = 100
	}
	early := strings.ToLower(passage)
	if len(early) > threshold {
		early = early[:threshold]
	}
	for _, p := range aq.Phrases {
		if strings.Contains(early, p) {
			return s.config.PositionBoostMultiplier
		}
	}
	for _, t := range aq.Terms {
		if strings.Contains(early, t) {
			return s.config.PositionBoostMultiplier
		}
	}
	return 1
}

// batchStats holds document frequencies of the query terms across one batch.
type batchStats struct {
	total   int
	docFreq map[string]int
}

func newBatchStats(terms, passages []string) *batchStats {
	st := &batchStats{total: len(passages), docFreq: make(map[string]int, len(terms))}
	for _, p := range passages {
		lower := strings.ToLower(p)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				st.docFreq[t]++
			}
		}
	}
	return st
}

// idf is a smoothed inverse document frequency, always positive.
func (b *batchStats) idf(term string) float64 {
	return math.Log(1 + float64(b.total)/float64(1+b.docFreq[term]))
}

type header struct {
	level int
	text  string
}

var (
	mdHeaderRegex   = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	htmlHeaderRegex = regexp.MustCompile(`(?i)<h([1-6])[^>]*>([^<]+)</h[1-6]>`)
)

// detectHeaders finds markdown and HTML headers, which survive in scraped help pages.
func detectHeaders(text string) []header {
	var out []header
	for _, m := range mdHeaderRegex.FindAllStringSubmatch(text, -1) {
		out = append(out, header{level: len(m[1]), text: strings.TrimSpace(m[2])})
	}
	for _, m := range htmlHeaderRegex.FindAllStringSubmatch(text, -1) {
		out = append(out, header{level: int(m[1][0] - '0'), text: strings.TrimSpace(m[2])})
	}
	return out
}
