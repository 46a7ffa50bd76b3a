// Package parquet provides data structures and functions for exporting autopush
// sync history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/autopush/schema"
	"github.com/parquet-go/parquet-go"
)

// SyncRun represents a single add/commit/push sequence.
// This struct maps to the autopush_sync_runs database table.
type SyncRun struct {
	// SyncID is the unique identifier for this sync run
	SyncID int64 `parquet:"sync_id,snappy"`

	// TriggerPath is the path of the change event, relative to the watch root
	TriggerPath string `parquet:"trigger_path,snappy,dict"`

	// TriggerOp is the notifier operation (create, write, remove, rename, manual)
	TriggerOp string `parquet:"trigger_op,snappy,dict"`

	// StartTime is when the first step began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the last step finished
	EndTime time.Time `parquet:"end_time,snappy"`

	// RunDurationMs is the duration of the whole sequence in milliseconds
	RunDurationMs int64 `parquet:"run_duration_ms,snappy"`

	// Succeeded is true when every step exited with status 0
	Succeeded bool `parquet:"succeeded"`

	// FailedStep names the first failing step (nullable)
	FailedStep *string `parquet:"failed_step,optional,snappy"`
}

// SyncStep represents one git invocation of a sync run.
// This struct maps to the autopush_sync_steps database table.
type SyncStep struct {
	SyncID     int64  `parquet:"sync_id,snappy"`
	StepIndex  int32  `parquet:"step_index,snappy"`
	StepName   string `parquet:"step_name,snappy,dict"`
	StepArgs   string `parquet:"step_args,snappy"` // JSON array of git arguments
	ExitCode   int32  `parquet:"exit_code,snappy"`
	Stdout     string `parquet:"stdout,snappy"`
	Stderr     string `parquet:"stderr,snappy"`
	DurationMs int64  `parquet:"duration_ms,snappy"`
}

// WriteSyncRunsParquet writes a slice of SyncRun structs to a Parquet file.
func WriteSyncRunsParquet(data []SyncRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteSyncStepsParquet writes a slice of SyncStep structs to a Parquet file.
func WriteSyncStepsParquet(data []SyncStep, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet derives the schema from the struct tags of T and writes all rows.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertSyncRecords converts schema.SyncRecord to SyncRun for Parquet export.
func ConvertSyncRecords(records []schema.SyncRecord) []SyncRun {
	result := make([]SyncRun, len(records))
	for i, record := range records {
		result[i] = SyncRun{
			SyncID:        record.SyncID,
			TriggerPath:   record.TriggerPath,
			TriggerOp:     record.TriggerOp,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.DurationMs,
			Succeeded:     record.Succeeded,
			FailedStep:    record.FailedStep,
		}
	}
	return result
}

// ConvertStepRecords converts schema.StepRecord to SyncStep for Parquet export.
func ConvertStepRecords(records []schema.StepRecord) []SyncStep {
	result := make([]SyncStep, len(records))
	for i, record := range records {
		result[i] = SyncStep{
			SyncID:     record.SyncID,
			StepIndex:  record.StepIndex,
			StepName:   record.StepName,
			StepArgs:   record.Args,
			ExitCode:   record.ExitCode,
			Stdout:     record.Stdout,
			Stderr:     record.Stderr,
			DurationMs: record.DurationMs,
		}
	}
	return result
}
