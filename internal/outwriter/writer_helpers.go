package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/autopush/internal/contract"
)

// writeWithFile opens the output target, hands it to writer and cleans up.
// An empty outputFile means stdout; a note goes to stderr otherwise.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes a header followed by whatever rows writeRows emits.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return writeRows(csvWriter)
}

// formatDuration rounds d for display in tables.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
