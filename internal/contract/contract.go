// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/autopush/schema"
)

// GitClient defines the git operations autopush needs.
// This allows the sync pipeline to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Exec runs a git command in repoPath and captures its exit status and streams.
	// A non-zero exit status is reported in the result, not as an error; the
	// error is only set when the process could not be run at all.
	Exec(ctx context.Context, repoPath string, args ...string) (schema.StepResult, error)

	// --- Repository Resolution ---

	// GetRepoRoot returns the absolute path to the root of the Git work tree
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// --- Sync Steps ---

	// AddAll stages every pending change under repoPath.
	AddAll(ctx context.Context, repoPath string) (schema.StepResult, error)

	// Commit records staged changes with the given message.
	Commit(ctx context.Context, repoPath string, message string) (schema.StepResult, error)

	// Push pushes to remote and branch. Empty values defer to git's defaults.
	Push(ctx context.Context, repoPath string, remote string, branch string) (schema.StepResult, error)
}

// HistoryManager defines the interface for managing the history store.
// This allows the persistence layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for recording sync runs.
type HistoryStore interface {
	// RecordSync stores a sync run with its steps and returns its unique ID.
	RecordSync(result schema.SyncResult) (int64, error)

	// ListSyncs returns the most recent sync runs, newest first.
	ListSyncs(limit int) ([]schema.SyncRecord, error)

	// GetAllSyncRuns returns every sync run, oldest first.
	GetAllSyncRuns() ([]schema.SyncRecord, error)

	// GetAllSyncSteps returns every recorded step, ordered by sync and step index.
	GetAllSyncSteps() ([]schema.StepRecord, error)

	// GetStatus returns status information about the history store.
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection.
	Close() error
}
