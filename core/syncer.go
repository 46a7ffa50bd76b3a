package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/watch"
	"github.com/huangsam/autopush/schema"
	"go.uber.org/zap"
)

// Syncer turns change events into add/commit/push sequences.
// It holds no mutable state between events.
type Syncer struct {
	cfg     *contract.Config
	client  contract.GitClient
	history contract.HistoryManager
	logger  *zap.SugaredLogger
	out     io.Writer
}

// NewSyncer creates a Syncer. The history manager may be nil to skip recording.
func NewSyncer(cfg *contract.Config, client contract.GitClient, mgr contract.HistoryManager, logger *zap.SugaredLogger) *Syncer {
	if logger == nil {
		logger = contract.NewNopLogger()
	}
	return &Syncer{
		cfg:     cfg.Clone(),
		client:  client,
		history: mgr,
		logger:  logger,
		out:     os.Stdout,
	}
}

// WithOutput redirects the per-change notification line.
func (s *Syncer) WithOutput(w io.Writer) *Syncer {
	s.out = w
	return s
}

var _ watch.Filter = &Syncer{} // Compile-time check

// Accepts reports whether a change event should trigger a sync. Events inside
// the metadata directory or matching an exclude pattern are rejected.
func (s *Syncer) Accepts(ev schema.ChangeEvent) bool {
	rel := contract.RelativeEventPath(s.cfg.RootPath, ev.Path)
	if contract.IsMetadataPath(rel, s.cfg.MetadataDir) {
		s.logger.Debugw("Skipping metadata change", "path", rel, "op", ev.Op)
		return false
	}
	if contract.ShouldIgnore(rel, s.cfg.Excludes) {
		s.logger.Debugw("Skipping excluded change", "path", rel, "op", ev.Op)
		return false
	}
	return true
}

// Handle runs the sync sequence for an accepted change event. Rejected events
// return a nil result and invoke no git command. Step failures are returned
// as a joined error alongside the full result.
func (s *Syncer) Handle(ctx context.Context, ev schema.ChangeEvent) (*schema.SyncResult, error) {
	if !s.Accepts(ev) {
		return nil, nil
	}

	rel := contract.RelativeEventPath(s.cfg.RootPath, ev.Path)
	s.logger.Debugw("Change detected", "path", rel, "op", ev.Op)
	s.notify()
	ev.Path = rel
	result := s.Sync(ctx, ev)
	return result, result.Err()
}

// Sync runs add, commit and push in order. Every step runs regardless of
// how the previous one ended.
func (s *Syncer) Sync(ctx context.Context, trigger schema.ChangeEvent) *schema.SyncResult {
	result := &schema.SyncResult{
		Trigger:   trigger,
		StartTime: time.Now(),
		Steps:     make([]schema.StepResult, 0, len(schema.SyncSteps)),
	}

	for _, name := range schema.SyncSteps {
		step := s.runStep(ctx, name)
		result.Steps = append(result.Steps, step)
		if step.Succeeded() {
			s.logger.Debugw("Git step finished", "step", name, "duration", step.Duration)
			continue
		}
		s.logger.Warnw("Git step failed",
			"step", name,
			"exit_code", step.ExitCode,
			"stderr", strings.TrimSpace(step.Stderr),
			"error", step.Err,
		)
	}
	result.EndTime = time.Now()

	s.logger.Infow("Sync finished",
		"path", trigger.Path,
		"op", trigger.Op,
		"succeeded", result.Succeeded(),
		"duration", result.Duration(),
	)
	s.record(*result)
	return result
}

// runStep invokes one git step in the watch root.
func (s *Syncer) runStep(ctx context.Context, name schema.StepName) schema.StepResult {
	var step schema.StepResult
	var err error

	switch name {
	case schema.AddStep:
		step, err = s.client.AddAll(ctx, s.cfg.RootPath)
	case schema.CommitStep:
		step, err = s.client.Commit(ctx, s.cfg.RootPath, s.cfg.CommitMessage)
	case schema.PushStep:
		step, err = s.client.Push(ctx, s.cfg.RootPath, s.cfg.Remote, s.cfg.Branch)
	default:
		err = fmt.Errorf("unknown sync step %q", name)
	}

	step.Name = name
	if err != nil && step.Err == nil {
		step.Err = err
		if step.ExitCode == 0 {
			step.ExitCode = -1
		}
	}
	return step
}

// record stores the result when a history store is configured.
func (s *Syncer) record(result schema.SyncResult) {
	if s.history == nil {
		return
	}
	store := s.history.GetHistoryStore()
	if store == nil {
		return
	}
	syncID, err := store.RecordSync(result)
	if err != nil {
		s.logger.Warnw("Failed to record sync", "error", err)
		return
	}
	s.logger.Debugw("Recorded sync", "sync_id", syncID)
}

// notify prints the fixed console line for a triggered change.
func (s *Syncer) notify() {
	line := schema.ChangeNotification
	if s.cfg.UseColors {
		line = contract.InfoColor.Sprint(line)
	}
	_, _ = fmt.Fprintln(s.out, line)
}

// ManualEvent is the trigger used when a sync is requested directly.
func ManualEvent() schema.ChangeEvent {
	return schema.ChangeEvent{Path: ".", Op: schema.ManualOp, Timestamp: time.Now()}
}
