// Package outwriter has output and writer logic.
package outwriter

import (
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteSyncResult prints the steps of one sync using the configured output format.
func (ow *OutWriter) WriteSyncResult(result *schema.SyncResult, cfg *contract.Config) error {
	return PrintSyncResult(result, cfg)
}

// WriteSyncHistory prints recorded syncs using the configured output format.
func (ow *OutWriter) WriteSyncHistory(records []schema.SyncRecord, cfg *contract.Config) error {
	return PrintSyncHistory(records, cfg)
}

// statusLabel returns the label for an exit code, colored when enabled.
func statusLabel(exitCode int, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(exitCode)
	}
	return contract.GetPlainLabel(exitCode)
}

// recordExitCode collapses a recorded run into the exit code used for labels.
func recordExitCode(record schema.SyncRecord) int {
	if record.Succeeded {
		return 0
	}
	return 1
}
