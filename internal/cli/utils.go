// Package cli formats command output for the wraith binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
	"github.com/hyperjump/wraith/pkg/utils"
)

// OutputFormat selects human-readable or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieve writes the assembled context and the threads it came from.
func WriteRetrieve(w io.Writer, resp *models.RetrieveResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%d threads in %dms\n\n", len(resp.Threads), resp.QueryTime)
	for i, th := range resp.Threads {
		marker := ""
		if th.Authoritative {
			marker = " [authoritative]"
		}
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s%s\n", i+1, th.ThreadID, marker)
		if th.Source != "" {
			fmt.Fprintf(w, "Source: %s\n", th.Source)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(th.Text, 400))
	}
	if len(resp.Threads) == 0 && resp.Context != "" {
		fmt.Fprintf(w, "%s\n", resp.Context)
	}
	if resp.Context == "" {
		fmt.Fprintln(w, "No context found.")
	}
	return nil
}

// WriteTurn writes the reply of one conversation turn.
func WriteTurn(w io.Writer, resp *models.TurnResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, resp.Reply)
	if resp.ErrorKind != "" {
		fmt.Fprintf(w, "(error: %s)\n", resp.ErrorKind)
	}
	return nil
}

// WriteStats writes chunk store counts.
func WriteStats(w io.Writer, st *storage.Stats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Backend:           %s\n", st.Backend)
	fmt.Fprintf(w, "Threads:           %d\n", st.Threads)
	fmt.Fprintf(w, "Chunks:            %d\n", st.Chunks)
	fmt.Fprintf(w, "Vector index size: %d\n", st.VectorIndexSize)
	fmt.Fprintf(w, "Disk usage:        %s\n", FormatBytes(st.DiskUsageBytes))
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
