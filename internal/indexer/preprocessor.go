package indexer

import (
	"regexp"
	"strings"
	"unicode"
)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

var (
	reMarkdownImage = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	reBareURL       = regexp.MustCompile(`https?://[^\s)]+`)
	reDeadLink      = regexp.MustCompile(`(?i)\[.*?\]\((javascript:void\(0\)|/t5/community-help-knowledge-base/community-help/ta-p/4662356|/html/assets/.*?\.pdf)\)`)
	reHashRun       = regexp.MustCompile(`#{2,}`)
	reBlankLines    = regexp.MustCompile(`\n\s*\n`)
	reUserAgentWarn = regexp.MustCompile(`USER_AGENT environment variable not set,.*\n`)
	reAvatarLink    = regexp.MustCompile(`\[[A-Za-z \d]+\]\(.*?avatar.*?\)`)
	reLevelBadge    = regexp.MustCompile(`\[Level \d+\]`)
	reLevelTail     = regexp.MustCompile(`Level \d+.*`)
	reDiscoverTail  = regexp.MustCompile(`(?i)Discover and save your favorite ideas[\s\S]*$`)
)

// CleanScraped strips scraper residue from a raw community or help page:
// images, URLs, dead links, heading markers, avatars, rank badges and the
// pinboard footer. Lines are trimmed and blank lines dropped.
func CleanScraped(raw string) string {
	s := reMarkdownImage.ReplaceAllString(raw, "")
	s = reBareURL.ReplaceAllString(s, "")
	s = reDeadLink.ReplaceAllString(s, "")
	s = reHashRun.ReplaceAllString(s, "")
	s = reBlankLines.ReplaceAllString(s, "\n")
	s = strings.TrimSpace(s)
	s = reUserAgentWarn.ReplaceAllString(s, "")
	s = reAvatarLink.ReplaceAllString(s, "")
	s = reLevelBadge.ReplaceAllString(s, "")
	s = reLevelTail.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	s = strings.Join(kept, "\n")
	return strings.TrimSpace(reDiscoverTail.ReplaceAllString(s, ""))
}
