package schema

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncResult(codes ...int) SyncResult {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	result := SyncResult{
		Trigger:   ChangeEvent{Path: "a.txt", Op: WriteOp},
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
	}
	for i, code := range codes {
		result.Steps = append(result.Steps, StepResult{
			Name:     SyncSteps[i],
			ExitCode: code,
		})
	}
	return result
}

func TestSyncResult_Succeeded(t *testing.T) {
	tests := []struct {
		name       string
		result     SyncResult
		succeeded  bool
		failedStep StepName
	}{
		{"all steps clean", newSyncResult(0, 0, 0), true, ""},
		{"commit with nothing to commit", newSyncResult(0, 1, 0), false, CommitStep},
		{"push rejected", newSyncResult(0, 0, 1), false, PushStep},
		{"add and push failed", newSyncResult(128, 0, 1), false, AddStep},
		{"no steps", newSyncResult(), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.succeeded, tt.result.Succeeded())
			assert.Equal(t, tt.failedStep, tt.result.FailedStep())
		})
	}
}

func TestSyncResult_Duration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, newSyncResult(0, 0, 0).Duration())
}

func TestSyncResult_Err(t *testing.T) {
	assert.NoError(t, newSyncResult(0, 0, 0).Err())

	result := newSyncResult(0, 1, 128)
	result.Steps[1].Stderr = "nothing to commit, working tree clean\n"
	result.Steps[2].Stderr = "fatal: no configured push destination\n"

	err := result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git commit exited with status 1: nothing to commit, working tree clean")
	assert.Contains(t, err.Error(), "git push exited with status 128: fatal: no configured push destination")

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, CommitStep, stepErr.Step)
}

func TestStepError_Unwrap(t *testing.T) {
	stepErr := &StepError{Step: AddStep, ExitCode: -1, Err: exec.ErrNotFound}
	assert.ErrorIs(t, stepErr, exec.ErrNotFound)
	assert.Contains(t, stepErr.Error(), "executable file not found")
}

func TestStepResult_Succeeded(t *testing.T) {
	assert.True(t, StepResult{Name: AddStep}.Succeeded())
	assert.False(t, StepResult{Name: AddStep, ExitCode: 1}.Succeeded())
	assert.False(t, StepResult{Name: AddStep, Err: errors.New("boom")}.Succeeded())
}
