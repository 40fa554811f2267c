// Package intent routes a query to the technical or smalltalk path.
package intent

import "strings"

// Intent is the routing decision for one query.
type Intent int

const (
	Smalltalk Intent = iota
	Technical
)

func (i Intent) String() string {
	if i == Technical {
		return "technical"
	}
	return "smalltalk"
}

// Classifier matches queries against a technical keyword vocabulary.
type Classifier struct {
	keywords []string
}

// NewClassifier lowercases and deduplicates keywords; blanks are dropped.
func NewClassifier(keywords []string) *Classifier {
	c := &Classifier{}
	seen := make(map[string]bool)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		c.keywords = append(c.keywords, k)
	}
	return c
}

// Classify returns Technical when the lowercased query contains any keyword.
func (c *Classifier) Classify(query string) Intent {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return Smalltalk
	}
	for _, k := range c.keywords {
		if strings.Contains(q, k) {
			return Technical
		}
	}
	return Smalltalk
}

// Keywords returns the vocabulary.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}
