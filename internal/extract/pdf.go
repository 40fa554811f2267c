package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minPagesForRunningLines is the page count below which running headers and
// footers are not detected.
const minPagesForRunningLines = 3

// extractPDF returns the text of every readable page with running headers and
// footers removed. Pages that fail to decode are skipped; the document fails
// only when no page could be read.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var (
		pages   []string
		lastErr error
	)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			lastErr = fmt.Errorf("extract page %d: %w", i, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 && lastErr != nil {
		return "", lastErr
	}
	return strings.Join(stripRunningLines(pages), "\n\n"), nil
}

// stripRunningLines drops lines that open or close more than half of the
// pages, such as a guide title or "Cisco Systems, Inc." footer.
func stripRunningLines(pages []string) []string {
	if len(pages) < minPagesForRunningLines {
		return pages
	}
	counts := make(map[string]int)
	split := make([][]string, len(pages))
	for i, p := range pages {
		lines := nonBlankLines(p)
		split[i] = lines
		seen := make(map[string]bool, 2)
		for _, edge := range edgeLines(lines) {
			if !seen[edge] {
				seen[edge] = true
				counts[edge]++
			}
		}
	}
	running := make(map[string]bool)
	for line, n := range counts {
		if n*2 > len(pages) {
			running[line] = true
		}
	}
	out := make([]string, 0, len(pages))
	for _, lines := range split {
		kept := lines[:0]
		for j, l := range lines {
			if (j == 0 || j == len(lines)-1) && running[l] {
				continue
			}
			kept = append(kept, l)
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, "\n"))
		}
	}
	return out
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func edgeLines(lines []string) []string {
	switch len(lines) {
	case 0:
		return nil
	case 1:
		return lines[:1]
	default:
		return []string{lines[0], lines[len(lines)-1]}
	}
}
