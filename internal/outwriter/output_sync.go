package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"

	"github.com/olekukonko/tablewriter"
)

// PrintSyncResult outputs the steps of one sync, dispatching based on the output format configured.
func PrintSyncResult(result *schema.SyncResult, cfg *contract.Config) error {
	if result == nil {
		return errors.New("no sync result to print")
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSyncJSON(w, result)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSyncCSV(w, result)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errors.New("parquet output is only supported by 'history list' and 'history export'")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSyncTable(w, result, cfg)
		}, "Wrote table")
	}
}

// stepCommand renders the argument vector the way it was run.
func stepCommand(step schema.StepResult) string {
	if len(step.Args) == 0 {
		return "git " + string(step.Name)
	}
	return "git " + strings.Join(step.Args, " ")
}

// writeSyncTable writes the human-readable step table and a summary line.
func writeSyncTable(writer io.Writer, result *schema.SyncResult, cfg *contract.Config) error {
	table := tablewriter.NewWriter(writer)
	table.Header([]string{"Step", "Command", "Exit", "Status", "Duration"})

	var data [][]string
	for _, step := range result.Steps {
		data = append(data, []string{
			string(step.Name),
			stepCommand(step),
			strconv.Itoa(step.ExitCode),
			statusLabel(step.ExitCode, cfg.UseColors),
			formatDuration(step.Duration),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, step := range result.Steps {
		if step.Succeeded() {
			continue
		}
		detail := firstLine(step.Stderr)
		if detail == "" && step.Err != nil {
			detail = step.Err.Error()
		}
		if detail == "" {
			detail = firstLine(step.Stdout)
		}
		if _, err := fmt.Fprintf(writer, "  %s: %s\n", step.Name, detail); err != nil {
			return err
		}
	}

	outcome := contract.OKValue
	if !result.Succeeded() {
		outcome = fmt.Sprintf("%s at %s", contract.FailedValue, result.FailedStep())
	}
	_, err := fmt.Fprintf(writer, "Sync of %s (%s) finished in %v: %s\n",
		result.Trigger.Path, result.Trigger.Op, formatDuration(result.Duration()), outcome)
	return err
}

// writeSyncCSV writes one row per step.
func writeSyncCSV(w io.Writer, result *schema.SyncResult) error {
	header := []string{"step", "command", "exit_code", "status", "duration_ms", "stdout", "stderr"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, step := range result.Steps {
			rec := []string{
				string(step.Name),
				stepCommand(step),
				strconv.Itoa(step.ExitCode),
				contract.GetPlainLabel(step.ExitCode),
				strconv.FormatInt(step.Duration.Milliseconds(), 10),
				strings.TrimSpace(step.Stdout),
				strings.TrimSpace(step.Stderr),
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeSyncJSON writes the result with its derived fields.
func writeSyncJSON(w io.Writer, result *schema.SyncResult) error {
	type JSONStep struct {
		Status string `json:"status"`
		schema.StepResult
	}
	type JSONSyncResult struct {
		Trigger    schema.ChangeEvent `json:"trigger"`
		Succeeded  bool               `json:"succeeded"`
		FailedStep string             `json:"failed_step,omitempty"`
		DurationMs int64              `json:"duration_ms"`
		Steps      []JSONStep         `json:"steps"`
	}

	output := JSONSyncResult{
		Trigger:    result.Trigger,
		Succeeded:  result.Succeeded(),
		FailedStep: string(result.FailedStep()),
		DurationMs: result.Duration().Milliseconds(),
		Steps:      make([]JSONStep, len(result.Steps)),
	}
	for i, step := range result.Steps {
		output.Steps[i] = JSONStep{
			Status:     contract.GetPlainLabel(step.ExitCode),
			StepResult: step,
		}
	}
	return writeJSON(w, output)
}
