package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultBody  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wordText matches <w:t> runs with or without attributes.
	wordText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	override = regexp.MustCompile(`<Override\b[^>]*>`)
	partName = regexp.MustCompile(`PartName="([^"]+)"`)
)

// extractDOCX returns one line per paragraph of the main document part. Runs
// inside a paragraph are concatenated as written. The part is
// located through [Content_Types].xml since some writers rename it.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	body := docxDefaultBody
	if types, err := readZipEntry(zr, docxContentTypes); err == nil {
		if p := mainPart(types); p != "" {
			body = p
		}
	}
	xml, err := readZipEntry(zr, body)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	var paragraphs []string
	for _, p := range bytes.Split(xml, []byte("</w:p>")) {
		var sb strings.Builder
		for _, m := range wordText.FindAllSubmatch(p, -1) {
			sb.Write(m[1])
		}
		if text := strings.TrimSpace(html.UnescapeString(sb.String())); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func mainPart(types []byte) string {
	for _, el := range override.FindAll(types, -1) {
		if !bytes.Contains(el, []byte(`ContentType="`+docxMainType+`"`)) {
			continue
		}
		if m := partName.FindSubmatch(el); m != nil {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return ""
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}
