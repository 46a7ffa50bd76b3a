package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/parquet"
	"github.com/huangsam/autopush/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSyncHistory outputs recorded syncs, dispatching based on the output format configured.
func PrintSyncHistory(records []schema.SyncRecord, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryJSON(w, records)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryCSV(w, records)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return errors.New("--output-file is required for parquet output")
		}
		return parquet.WriteSyncRunsParquet(parquet.ConvertSyncRecords(records), cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryTable(w, records, cfg)
		}, "Wrote table")
	}
	return nil
}

// failedStepOf returns the failed step name or "-".
func failedStepOf(record schema.SyncRecord) string {
	if record.FailedStep == nil || *record.FailedStep == "" {
		return "-"
	}
	return *record.FailedStep
}

// writeHistoryTable generates and writes the human-readable table.
func writeHistoryTable(writer io.Writer, records []schema.SyncRecord, cfg *contract.Config) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(writer, "No syncs recorded yet.")
		return err
	}

	table := tablewriter.NewWriter(writer)
	table.Header([]string{"ID", "Path", "Op", "Started", "Duration", "Status", "Failed"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	maxWidth := GetMaxTablePathWidth(cfg)
	failed := 0
	var data [][]string
	for _, r := range records {
		if !r.Succeeded {
			failed++
		}
		data = append(data, []string{
			strconv.FormatInt(r.SyncID, 10),
			contract.TruncatePath(r.TriggerPath, maxWidth),
			r.TriggerOp,
			r.StartTime.Local().Format(contract.DateTimeFormat),
			formatDuration(time.Duration(r.DurationMs) * time.Millisecond),
			statusLabel(recordExitCode(r), cfg.UseColors),
			failedStepOf(r),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(writer, "Showing %d syncs (%d failed). History backend: %s\n", len(records), failed, cfg.HistoryBackend)
	return err
}

// writeHistoryCSV writes one row per recorded sync.
func writeHistoryCSV(w io.Writer, records []schema.SyncRecord) error {
	header := []string{
		"sync_id",
		"trigger_path",
		"trigger_op",
		"start_time",
		"end_time",
		"duration_ms",
		"status",
		"failed_step",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, r := range records {
			failedStep := ""
			if r.FailedStep != nil {
				failedStep = *r.FailedStep
			}
			rec := []string{
				strconv.FormatInt(r.SyncID, 10),
				r.TriggerPath,
				r.TriggerOp,
				r.StartTime.Format(contract.DateTimeFormat),
				r.EndTime.Format(contract.DateTimeFormat),
				strconv.FormatInt(r.DurationMs, 10),
				contract.GetPlainLabel(recordExitCode(r)),
				failedStep,
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeHistoryJSON writes the records with a status label added.
func writeHistoryJSON(w io.Writer, records []schema.SyncRecord) error {
	type JSONSyncRecord struct {
		Status string `json:"status"`
		schema.SyncRecord
	}

	output := make([]JSONSyncRecord, len(records))
	for i, r := range records {
		output[i] = JSONSyncRecord{
			Status:     contract.GetPlainLabel(recordExitCode(r)),
			SyncRecord: r,
		}
	}
	return writeJSON(w, output)
}
