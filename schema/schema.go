// Package schema has the models shared by every part of autopush.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRootNotRepo is returned when the watch root is not inside a git work tree.
var ErrRootNotRepo = errors.New("watch root is not inside a git work tree")

// ChangeEvent is a single filesystem change delivered by the notifier.
// It is consumed by the change handler and then discarded.
type ChangeEvent struct {
	Path      string    `json:"path"`
	Op        EventOp   `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// StepResult captures one git invocation.
type StepResult struct {
	Name      StepName      `json:"name"`
	Args      []string      `json:"args"`
	ExitCode  int           `json:"exit_code"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Succeeded reports whether the step ran and exited with status 0.
func (s StepResult) Succeeded() bool {
	return s.Err == nil && s.ExitCode == 0
}

// SyncResult is the outcome of one add/commit/push sequence.
type SyncResult struct {
	Trigger   ChangeEvent  `json:"trigger"`
	Steps     []StepResult `json:"steps"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
}

// Duration returns the wall time taken by the sequence.
func (r SyncResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Succeeded reports whether every step of the sequence succeeded.
func (r SyncResult) Succeeded() bool {
	for _, step := range r.Steps {
		if !step.Succeeded() {
			return false
		}
	}
	return len(r.Steps) > 0
}

// FailedStep returns the name of the first failing step, or "" if none failed.
func (r SyncResult) FailedStep() StepName {
	for _, step := range r.Steps {
		if !step.Succeeded() {
			return step.Name
		}
	}
	return ""
}

// Err joins the errors of all failing steps.
func (r SyncResult) Err() error {
	var errs []error
	for _, step := range r.Steps {
		if step.Succeeded() {
			continue
		}
		errs = append(errs, &StepError{
			Step:     step.Name,
			ExitCode: step.ExitCode,
			Stderr:   strings.TrimSpace(step.Stderr),
			Err:      step.Err,
		})
	}
	return errors.Join(errs...)
}

// StepError describes a git step that did not exit cleanly.
type StepError struct {
	Step     StepName
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("git %s exited with status %d", e.Step, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
