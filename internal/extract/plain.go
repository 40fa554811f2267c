package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes text files saved by editors and knowledge-base exports:
// a UTF-8 byte order mark is dropped, CRLF becomes LF, invalid sequences become
// U+FFFD. For markdown a leading YAML front matter block is removed.
func extractPlain(content []byte, ext string) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if ext == ".md" {
		text = stripFrontMatter(text)
	}
	return text, nil
}

func stripFrontMatter(text string) string {
	if !strings.HasPrefix(text, "---\n") {
		return text
	}
	end := strings.Index(text[4:], "\n---")
	if end < 0 {
		return text
	}
	rest := text[4+end+len("\n---"):]
	return strings.TrimLeft(rest, "\n")
}
