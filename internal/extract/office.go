package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractOffice handles OpenDocument text and RTF, which cat detects by content.
func extractOffice(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
