package iocache

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/huangsam/autopush/schema"
)

// PrintHistoryStatus prints history status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Syncs: %d\n", status.TotalSyncs)
	_, _ = fmt.Fprintf(w, "Failed Syncs: %d\n", status.FailedSyncs)
	if status.TotalSyncs > 0 {
		_, _ = fmt.Fprintf(w, "Last Sync ID: %d\n", status.LastSyncID)
		_, _ = fmt.Fprintf(w, "Last Sync: %s\n", status.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Sync: %s\n", status.OldestSyncTime.Local().Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range slices.Sorted(maps.Keys(status.TableSizes)) {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
