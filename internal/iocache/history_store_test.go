package iocache

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/autopush/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleSync builds a three-step sync whose steps exit with the given codes.
func sampleSync(path string, start time.Time, codes ...int) schema.SyncResult {
	result := schema.SyncResult{
		Trigger:   schema.ChangeEvent{Path: path, Op: schema.WriteOp, Timestamp: start},
		StartTime: start,
	}
	args := map[schema.StepName][]string{
		schema.AddStep:    {"add", "."},
		schema.CommitStep: {"commit", "-m", "auto update"},
		schema.PushStep:   {"push"},
	}
	for i, name := range schema.SyncSteps {
		step := schema.StepResult{
			Name:      name,
			Args:      args[name],
			StartTime: start.Add(time.Duration(i) * 10 * time.Millisecond),
			Duration:  10 * time.Millisecond,
		}
		if i < len(codes) {
			step.ExitCode = codes[i]
			if codes[i] != 0 {
				step.Stderr = "fatal: something went wrong"
			}
		}
		result.Steps = append(result.Steps, step)
	}
	result.EndTime = start.Add(30 * time.Millisecond)
	return result
}

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)
	require.NotNil(t, store)

	syncID, err := store.RecordSync(sampleSync("a.txt", time.Now()))
	assert.NoError(t, err)
	assert.Equal(t, int64(0), syncID)

	records, err := store.ListSyncs(10)
	assert.NoError(t, err)
	assert.Empty(t, records)

	status, err := store.GetStatus()
	assert.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)

	assert.NoError(t, store.Close())
}

func TestHistoryStore_UnsupportedBackend(t *testing.T) {
	_, err := NewHistoryStore("redis", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestHistoryStore_SQLiteRecordAndList(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	firstID, err := store.RecordSync(sampleSync("a.txt", base, 0, 0, 0))
	require.NoError(t, err)
	assert.Greater(t, firstID, int64(0))

	secondID, err := store.RecordSync(sampleSync("src/b.go", base.Add(time.Minute), 0, 1, 128))
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)

	records, err := store.ListSyncs(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first
	latest := records[0]
	assert.Equal(t, secondID, latest.SyncID)
	assert.Equal(t, "src/b.go", latest.TriggerPath)
	assert.Equal(t, "write", latest.TriggerOp)
	assert.False(t, latest.Succeeded)
	require.NotNil(t, latest.FailedStep)
	assert.Equal(t, "commit", *latest.FailedStep)
	assert.Equal(t, int64(30), latest.DurationMs)
	assert.True(t, latest.StartTime.Equal(base.Add(time.Minute)))

	require.Len(t, latest.Steps, 3)
	assert.Equal(t, "add", latest.Steps[0].StepName)
	assert.Equal(t, `["add","."]`, latest.Steps[0].Args)
	assert.Equal(t, int32(1), latest.Steps[1].ExitCode)
	assert.Equal(t, int32(128), latest.Steps[2].ExitCode)
	assert.Equal(t, "fatal: something went wrong", latest.Steps[2].Stderr)

	oldest := records[1]
	assert.True(t, oldest.Succeeded)
	assert.Nil(t, oldest.FailedStep)

	limited, err := store.ListSyncs(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, secondID, limited[0].SyncID)
}

func TestHistoryStore_SQLiteGetAll(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now()
	for i := range 3 {
		_, err := store.RecordSync(sampleSync("file.txt", now.Add(time.Duration(i)*time.Second), 0, 0, 0))
		require.NoError(t, err)
	}

	runs, err := store.GetAllSyncRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Less(t, runs[0].SyncID, runs[2].SyncID, "runs are ordered oldest first")
	assert.Empty(t, runs[0].Steps)

	steps, err := store.GetAllSyncSteps()
	require.NoError(t, err)
	require.Len(t, steps, 9)
	assert.Equal(t, runs[0].SyncID, steps[0].SyncID)
	assert.Equal(t, int32(0), steps[0].StepIndex)
	assert.Equal(t, int32(2), steps[2].StepIndex)
}

func TestHistoryStore_SQLiteStatus(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalSyncs)
	assert.Equal(t, int64(0), status.TableSizes[syncRunsTable])

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = store.RecordSync(sampleSync("a.txt", base, 0, 0, 0))
	require.NoError(t, err)
	lastID, err := store.RecordSync(sampleSync("a.txt", base.Add(time.Hour), 0, 0, 1))
	require.NoError(t, err)

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Equal(t, 2, status.TotalSyncs)
	assert.Equal(t, 1, status.FailedSyncs)
	assert.Equal(t, lastID, status.LastSyncID)
	assert.True(t, status.LastSyncTime.Equal(base.Add(time.Hour)))
	assert.True(t, status.OldestSyncTime.Equal(base))
	assert.Equal(t, int64(2), status.TableSizes[syncRunsTable])
	assert.Equal(t, int64(6), status.TableSizes[syncStepsTable])
}

func TestHistoryStore_SQLiteFilePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	_, err = store.RecordSync(sampleSync("a.txt", time.Now(), 0, 0, 0))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.ListSyncs(5)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
	assert.NoFileExists(t, dbPath)
}

func TestClearHistory(t *testing.T) {
	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	assert.Error(t, ClearHistory(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearHistory(schema.SQLiteBackend, filepath.Join(t.TempDir(), "missing.db"), ""))
	assert.Error(t, ClearHistory("redis", "", ""))
}

func TestPrintHistoryStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintHistoryStatus(&buf, schema.HistoryStatus{Backend: "none"})
	assert.Contains(t, buf.String(), "History Backend: none")
	assert.NotContains(t, buf.String(), "Total Syncs")

	buf.Reset()
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:     "sqlite",
		Connected:   true,
		TotalSyncs:  4,
		FailedSyncs: 1,
		LastSyncID:  4,
		TableSizes:  map[string]int64{syncStepsTable: 12, syncRunsTable: 4},
	})
	out := buf.String()
	assert.Contains(t, out, "Total Syncs: 4")
	assert.Contains(t, out, "Failed Syncs: 1")
	assert.Contains(t, out, "Last Sync ID: 4")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(syncRunsTable)), bytes.Index(buf.Bytes(), []byte(syncStepsTable)))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName(syncRunsTable))
	assert.NoError(t, validateTableName("_private"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("1table"))
	assert.Error(t, validateTableName("runs; DROP TABLE x"))
}

func TestQueryHelpers(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))

	assert.Equal(t, "?, ?, ?", placeholders(schema.SQLiteBackend, 3))
	assert.Equal(t, "?", placeholders(schema.MySQLBackend, 1))
	assert.Equal(t, "$1, $2", placeholders(schema.PostgreSQLBackend, 2))

	ts := time.Date(2026, 5, 6, 7, 8, 9, 10, time.UTC)
	assert.Equal(t, "2026-05-06T07:08:09.00000001Z", formatTime(ts, schema.SQLiteBackend))
	assert.Equal(t, ts, formatTime(ts, schema.PostgreSQLBackend))
}
