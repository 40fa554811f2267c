// Package chunkid derives stable thread and chunk IDs so re-ingesting the same
// source replaces rather than duplicates.
package chunkid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const filePrefix = "file:"

// ForPath returns the thread ID for a file at absolutePath.
func ForPath(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return filePrefix + hex.EncodeToString(hash[:12])
}

// Chunk returns the ID of the index-th chunk of threadID.
func Chunk(threadID string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d", threadID, index)))
	return hex.EncodeToString(hash[:16])
}
