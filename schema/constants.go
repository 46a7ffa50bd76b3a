package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for sync history.
	DatabaseBackend string

	// StepName identifies one of the git invocations of a sync.
	StepName string

	// EventOp represents the kind of filesystem change that was observed.
	EventOp string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// Steps of a sync, in execution order.
const (
	AddStep    StepName = "add"
	CommitStep StepName = "commit"
	PushStep   StepName = "push"
)

// All event ops delivered to the change handler.
const (
	CreateOp  EventOp = "create"
	WriteOp   EventOp = "write"
	RemoveOp  EventOp = "remove"
	RenameOp  EventOp = "rename"
	ManualOp  EventOp = "manual" // sync requested from CLI or MCP
	UnknownOp EventOp = "unknown"
)

// Defaults that reproduce the fixed behavior of the sync pipeline.
const (
	DefaultCommitMessage = "auto update"
	DefaultMetadataDir   = ".git"
	ChangeNotification   = "Change detected → pushing to GitHub..."
)

// SyncSteps lists the steps of every sync in the order they run.
var SyncSteps = []StepName{AddStep, CommitStep, PushStep}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
