// Package extract turns ingestible support documents into plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes caps the size of a single document read from disk.
const DefaultMaxBytes int64 = 64 << 20

// Extractor reads documents and returns their text.
type Extractor struct {
	maxBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes sets the largest file Extract will read. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// NewExtractor returns an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported lists the extensions with a dedicated decoder. Anything else is read as plain text.
func Supported() []string {
	return []string{".pdf", ".docx", ".odt", ".rtf", ".txt", ".md", ".rst"}
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > e.maxBytes {
		return "", fmt.Errorf("%s is %d bytes, over the %d byte limit", filepath.Base(path), info.Size(), e.maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes decodes content by ext, which includes the leading dot.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractOffice(content)
	default:
		return extractPlain(content, strings.ToLower(ext))
	}
}
