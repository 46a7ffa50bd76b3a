package schema

import "time"

// HistoryStatus represents the status of the history store.
type HistoryStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TotalSyncs     int              `json:"total_syncs"`
	FailedSyncs    int              `json:"failed_syncs"`
	LastSyncID     int64            `json:"last_sync_id"`
	LastSyncTime   time.Time        `json:"last_sync_time"`
	OldestSyncTime time.Time        `json:"oldest_sync_time"`
	TableSizes     map[string]int64 `json:"table_sizes"`
}

// SyncRecord represents a row from the autopush_sync_runs table.
type SyncRecord struct {
	SyncID      int64        `json:"sync_id"`
	TriggerPath string       `json:"trigger_path"`
	TriggerOp   string       `json:"trigger_op"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	DurationMs  int64        `json:"duration_ms"`
	Succeeded   bool         `json:"succeeded"`
	FailedStep  *string      `json:"failed_step,omitempty"`
	Steps       []StepRecord `json:"steps,omitempty"`
}

// StepRecord represents a row from the autopush_sync_steps table.
type StepRecord struct {
	SyncID     int64  `json:"sync_id"`
	StepIndex  int32  `json:"step_index"`
	StepName   string `json:"step_name"`
	Args       string `json:"args"`
	ExitCode   int32  `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
}
