package iocache

import (
	"errors"
	"fmt"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/parquet"
)

// ExecuteHistoryExport writes the sync runs and steps of store to Parquet files
// named after outputFile.
func ExecuteHistoryExport(store contract.HistoryStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not initialized")
	}

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}

	if status.TotalSyncs == 0 {
		return errors.New("no sync history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total sync runs: %d\n", status.TotalSyncs)
	fmt.Printf("Total step records: %d\n", status.TableSizes[syncStepsTable])

	syncRuns, err := store.GetAllSyncRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve sync runs: %w", err)
	}

	syncSteps, err := store.GetAllSyncSteps()
	if err != nil {
		return fmt.Errorf("failed to retrieve sync steps: %w", err)
	}

	runsFile := outputFile + ".sync_runs.parquet"
	if err := parquet.WriteSyncRunsParquet(parquet.ConvertSyncRecords(syncRuns), runsFile); err != nil {
		return fmt.Errorf("failed to write sync runs: %w", err)
	}
	fmt.Printf("Exported %d sync runs to: %s\n", len(syncRuns), runsFile)

	stepsFile := outputFile + ".sync_steps.parquet"
	if err := parquet.WriteSyncStepsParquet(parquet.ConvertStepRecords(syncSteps), stepsFile); err != nil {
		return fmt.Errorf("failed to write sync steps: %w", err)
	}
	fmt.Printf("Exported %d sync steps to: %s\n", len(syncSteps), stepsFile)

	return nil
}
