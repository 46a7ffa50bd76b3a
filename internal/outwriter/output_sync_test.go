package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(pushCode int) *schema.SyncResult {
	start := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	return &schema.SyncResult{
		Trigger:   schema.ChangeEvent{Path: "a.txt", Op: schema.CreateOp, Timestamp: start},
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
		Steps: []schema.StepResult{
			{Name: schema.AddStep, Args: []string{"add", "."}, Duration: 10 * time.Millisecond},
			{Name: schema.CommitStep, Args: []string{"commit", "-m", "auto update"}, Stdout: "[main 1a2b3c4] auto update\n", Duration: 30 * time.Millisecond},
			{Name: schema.PushStep, Args: []string{"push"}, ExitCode: pushCode, Stderr: "fatal: No configured push destination.\nhint: add a remote\n", Duration: time.Second},
		},
	}
}

func TestPrintSyncResult_Nil(t *testing.T) {
	assert.Error(t, PrintSyncResult(nil, &contract.Config{}))
}

func TestPrintSyncResult_ParquetRejected(t *testing.T) {
	err := PrintSyncResult(sampleResult(0), &contract.Config{Output: schema.ParquetOut})
	assert.ErrorContains(t, err, "history export")
}

func TestWriteSyncTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSyncTable(&buf, sampleResult(128), &contract.Config{}))
	out := buf.String()

	assert.Contains(t, out, "git add .")
	assert.Contains(t, out, "git commit -m auto update")
	assert.Contains(t, out, "128")
	assert.Contains(t, out, contract.FailedValue)
	assert.Contains(t, out, "push: fatal: No configured push destination.")
	assert.NotContains(t, out, "hint: add a remote", "only the first stderr line is shown")
	assert.Contains(t, out, "Sync of a.txt (create) finished in 1.5s: Failed at push")
}

func TestWriteSyncTable_Succeeded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSyncTable(&buf, sampleResult(0), &contract.Config{}))
	assert.Contains(t, buf.String(), ": OK\n")
	assert.NotContains(t, buf.String(), "push: ")
}

func TestWriteSyncTable_SpawnError(t *testing.T) {
	result := sampleResult(0)
	result.Steps[2] = schema.StepResult{Name: schema.PushStep, ExitCode: -1, Err: errors.New("executable file not found")}

	var buf bytes.Buffer
	require.NoError(t, writeSyncTable(&buf, result, &contract.Config{}))
	assert.Contains(t, buf.String(), "git push")
	assert.Contains(t, buf.String(), contract.SkippedValue)
	assert.Contains(t, buf.String(), "push: executable file not found")
}

func TestWriteSyncCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSyncCSV(&buf, sampleResult(1)))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header + 3 steps")
	assert.Equal(t, []string{"step", "command", "exit_code", "status", "duration_ms", "stdout", "stderr"}, records[0])
	assert.Equal(t, "commit", records[2][0])
	assert.Equal(t, "[main 1a2b3c4] auto update", records[2][5])
	assert.Equal(t, "1", records[3][2])
	assert.Equal(t, contract.FailedValue, records[3][3])
	assert.Equal(t, "1000", records[3][4])
}

func TestWriteSyncJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSyncJSON(&buf, sampleResult(1)))

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, false, result["succeeded"])
	assert.Equal(t, "push", result["failed_step"])
	assert.Equal(t, float64(1500), result["duration_ms"])

	steps, ok := result["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 3)
	first := steps[0].(map[string]any)
	assert.Equal(t, "add", first["name"])
	assert.Equal(t, contract.OKValue, first["status"])
}

func TestPrintSyncResult_ToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "sync.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: outputFile}
	require.NoError(t, PrintSyncResult(sampleResult(0), cfg))

	content, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"succeeded": true`)
}
