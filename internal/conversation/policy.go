package conversation

import (
	"regexp"
	"strings"

	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/pkg/utils"
)

// Policy holds the termination and memory thresholds.
type Policy struct {
	StopWords []string
	// SummarizeAfter triggers a summary when the history is longer than this.
	SummarizeAfter int
	// MaxMessages ends the flow when the history is longer than this.
	MaxMessages int
	// KeepAfterPrune is how many messages survive a summary.
	KeepAfterPrune int
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		StopWords:      append([]string(nil), config.DefaultStopWords...),
		SummarizeAfter: 6,
		MaxMessages:    20,
		KeepAfterPrune: 2,
	}
}

// PolicyFromConfig builds a Policy from cfg, falling back to defaults for zero values.
func PolicyFromConfig(cfg config.ConversationConfig) Policy {
	p := DefaultPolicy()
	if cfg.StopWords != nil {
		p.StopWords = cfg.StopWords
	}
	if cfg.SummarizeAfter > 0 {
		p.SummarizeAfter = cfg.SummarizeAfter
	}
	if cfg.MaxMessages > 0 {
		p.MaxMessages = cfg.MaxMessages
	}
	if cfg.KeepAfterPrune > 0 {
		p.KeepAfterPrune = cfg.KeepAfterPrune
	}
	return p
}

// IsStopWord reports whether the whole normalised query is a stop word.
func (p Policy) IsStopWord(query string) bool {
	q := utils.NormalizeQuery(query)
	for _, w := range p.StopWords {
		if q == utils.NormalizeQuery(w) {
			return true
		}
	}
	return false
}

// Decide picks the state after Respond.
func (p Policy) Decide(query string, messages int) State {
	if p.IsStopWord(query) || messages > p.MaxMessages {
		return StateEnd
	}
	if messages > p.SummarizeAfter {
		return StateSummarize
	}
	return StateEnd
}

var nameRegex = regexp.MustCompile(`(?i)\b(?:i am|i'm|my name is)\s+([A-Za-z]+)`)

// ExtractName returns the name introduced in text, or "".
func ExtractName(text string) string {
	m := nameRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// summaryInstruction frames the summary request, extending an existing summary when present.
func summaryInstruction(prior string) string {
	if strings.TrimSpace(prior) == "" {
		return "Create a summary of the conversation above:"
	}
	return "This is the summary of the conversation to date: " + prior +
		"\n\nExtend the summary by taking into account the new messages above:"
}
