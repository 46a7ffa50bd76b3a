package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for sync history.
const (
	syncRunsTable  = "autopush_sync_runs"
	syncStepsTable = "autopush_sync_steps"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	db, driverName, err := openDatabase(backend, connStr)
	if err != nil {
		return nil, err
	}
	if db == nil {
		// Return a no-op store for disabled history
		return &HistoryStoreImpl{backend: backend}, nil
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database server is running and accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	// Create the table schemas
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{
		db:         db,
		backend:    backend,
		driverName: driverName,
	}, nil
}

// openDatabase opens a handle for the backend. NoneBackend yields a nil handle.
func openDatabase(backend schema.DatabaseBackend, connStr string) (*sql.DB, string, error) {
	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetHistoryDBFilePath()
		}
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
		return db, "sqlite", nil

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse MySQL connection string: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}
		cfg.ParseTime = true // DATETIME columns scan into time.Time
		db, err := sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, "", fmt.Errorf("failed to open MySQL database: %w", err)
		}
		return db, "mysql", nil

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open PostgreSQL database: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}
		return db, "pgx", nil

	case schema.NoneBackend:
		return nil, "", nil

	default:
		return nil, "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// createHistoryTables creates the history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{syncRunsTable, getCreateSyncRunsQuery(backend)},
		{syncStepsTable, getCreateSyncStepsQuery(backend)},
	}

	for _, table := range tables {
		if err := validateTableName(table.name); err != nil {
			return err
		}
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}

	return nil
}

// getCreateSyncRunsQuery returns the CREATE TABLE query for autopush_sync_runs.
func getCreateSyncRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(syncRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				sync_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				trigger_path VARCHAR(1024) NOT NULL,
				trigger_op VARCHAR(16) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6) NOT NULL,
				run_duration_ms BIGINT NOT NULL,
				succeeded BOOLEAN NOT NULL,
				failed_step VARCHAR(16)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				sync_id BIGSERIAL PRIMARY KEY,
				trigger_path TEXT NOT NULL,
				trigger_op TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ NOT NULL,
				run_duration_ms BIGINT NOT NULL,
				succeeded BOOLEAN NOT NULL,
				failed_step TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				sync_id INTEGER PRIMARY KEY AUTOINCREMENT,
				trigger_path TEXT NOT NULL,
				trigger_op TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT NOT NULL,
				run_duration_ms INTEGER NOT NULL,
				succeeded INTEGER NOT NULL,
				failed_step TEXT
			);
		`, quotedTableName)
	}
}

// getCreateSyncStepsQuery returns the CREATE TABLE query for autopush_sync_steps.
func getCreateSyncStepsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(syncStepsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				sync_id BIGINT NOT NULL,
				step_index INT NOT NULL,
				step_name VARCHAR(16) NOT NULL,
				step_args TEXT NOT NULL,
				exit_code INT NOT NULL,
				stdout MEDIUMTEXT NOT NULL,
				stderr MEDIUMTEXT NOT NULL,
				duration_ms BIGINT NOT NULL,
				PRIMARY KEY (sync_id, step_index)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				sync_id BIGINT NOT NULL,
				step_index INT NOT NULL,
				step_name TEXT NOT NULL,
				step_args TEXT NOT NULL,
				exit_code INT NOT NULL,
				stdout TEXT NOT NULL,
				stderr TEXT NOT NULL,
				duration_ms BIGINT NOT NULL,
				PRIMARY KEY (sync_id, step_index)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				sync_id INTEGER NOT NULL,
				step_index INTEGER NOT NULL,
				step_name TEXT NOT NULL,
				step_args TEXT NOT NULL,
				exit_code INTEGER NOT NULL,
				stdout TEXT NOT NULL,
				stderr TEXT NOT NULL,
				duration_ms INTEGER NOT NULL,
				PRIMARY KEY (sync_id, step_index)
			);
		`, quotedTableName)
	}
}

// RecordSync stores a sync run and its steps in one transaction.
func (hs *HistoryStoreImpl) RecordSync(result schema.SyncResult) (int64, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var failedStep any
	if name := result.FailedStep(); name != "" {
		failedStep = string(name)
	}

	runArgs := []any{
		result.Trigger.Path,
		string(result.Trigger.Op),
		formatTime(result.StartTime, hs.backend),
		formatTime(result.EndTime, hs.backend),
		result.Duration().Milliseconds(),
		result.Succeeded(),
		failedStep,
	}
	runQuery := fmt.Sprintf(`INSERT INTO %s (trigger_path, trigger_op, start_time, end_time, run_duration_ms, succeeded, failed_step) VALUES (%s)`,
		quoteTableName(syncRunsTable, hs.backend), placeholders(hs.backend, len(runArgs)))

	var syncID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		err = tx.QueryRow(runQuery+" RETURNING sync_id", runArgs...).Scan(&syncID)
	default: // SQLite and MySQL
		var res sql.Result
		res, err = tx.Exec(runQuery, runArgs...)
		if err == nil {
			syncID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert sync run: %w", err)
	}

	stepQuery := fmt.Sprintf(`INSERT INTO %s (sync_id, step_index, step_name, step_args, exit_code, stdout, stderr, duration_ms) VALUES (%s)`,
		quoteTableName(syncStepsTable, hs.backend), placeholders(hs.backend, 8))
	for i, step := range result.Steps {
		argsJSON, err := json.Marshal(step.Args)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal step args: %w", err)
		}
		if _, err := tx.Exec(stepQuery, syncID, i, string(step.Name), string(argsJSON),
			step.ExitCode, step.Stdout, step.Stderr, step.Duration.Milliseconds()); err != nil {
			return 0, fmt.Errorf("failed to insert %s step: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sync run: %w", err)
	}
	return syncID, nil
}

// ListSyncs returns up to limit recent sync runs with their steps, newest first.
func (hs *HistoryStoreImpl) ListSyncs(limit int) ([]schema.SyncRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT sync_id, trigger_path, trigger_op, start_time, end_time, run_duration_ms, succeeded, failed_step
		FROM %s ORDER BY sync_id DESC LIMIT %s`, quoteTableName(syncRunsTable, hs.backend), placeholders(hs.backend, 1))
	records, err := hs.queryRuns(query, limit)
	if err != nil {
		return nil, err
	}

	stepsQuery := fmt.Sprintf(`SELECT sync_id, step_index, step_name, step_args, exit_code, stdout, stderr, duration_ms
		FROM %s WHERE sync_id = %s ORDER BY step_index`, quoteTableName(syncStepsTable, hs.backend), placeholders(hs.backend, 1))
	for i := range records {
		steps, err := hs.querySteps(stepsQuery, records[i].SyncID)
		if err != nil {
			return nil, err
		}
		records[i].Steps = steps
	}
	return records, nil
}

// GetAllSyncRuns retrieves all sync runs from the store, without steps.
func (hs *HistoryStoreImpl) GetAllSyncRuns() ([]schema.SyncRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT sync_id, trigger_path, trigger_op, start_time, end_time, run_duration_ms, succeeded, failed_step
		FROM %s ORDER BY sync_id`, quoteTableName(syncRunsTable, hs.backend))
	return hs.queryRuns(query)
}

// GetAllSyncSteps retrieves all sync steps from the store.
func (hs *HistoryStoreImpl) GetAllSyncSteps() ([]schema.StepRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT sync_id, step_index, step_name, step_args, exit_code, stdout, stderr, duration_ms
		FROM %s ORDER BY sync_id, step_index`, quoteTableName(syncStepsTable, hs.backend))
	return hs.querySteps(query)
}

// queryRuns scans sync run rows returned by query.
func (hs *HistoryStoreImpl) queryRuns(query string, args ...any) ([]schema.SyncRecord, error) {
	rows, err := hs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.SyncRecord
	for rows.Next() {
		var record schema.SyncRecord
		var failedStep sql.NullString
		start := timeColumn{backend: hs.backend}
		end := timeColumn{backend: hs.backend}

		if err := rows.Scan(&record.SyncID, &record.TriggerPath, &record.TriggerOp, start.dest(), end.dest(),
			&record.DurationMs, &record.Succeeded, &failedStep); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		if record.StartTime, err = start.get(); err != nil {
			return nil, err
		}
		if record.EndTime, err = end.get(); err != nil {
			return nil, err
		}
		if failedStep.Valid {
			record.FailedStep = &failedStep.String
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	return results, nil
}

// querySteps scans sync step rows returned by query.
func (hs *HistoryStoreImpl) querySteps(query string, args ...any) ([]schema.StepRecord, error) {
	rows, err := hs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.StepRecord
	for rows.Next() {
		var record schema.StepRecord
		if err := rows.Scan(&record.SyncID, &record.StepIndex, &record.StepName, &record.Args,
			&record.ExitCode, &record.Stdout, &record.Stderr, &record.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan sync step: %w", err)
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync steps: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	runsTable := quoteTableName(syncRunsTable, hs.backend)

	// Get total and failed syncs
	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runsTable))
	if err := row.Scan(&status.TotalSyncs); err != nil {
		return status, fmt.Errorf("failed to get total syncs: %w", err)
	}
	row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE NOT succeeded", runsTable))
	if err := row.Scan(&status.FailedSyncs); err != nil {
		return status, fmt.Errorf("failed to get failed syncs: %w", err)
	}

	if status.TotalSyncs > 0 {
		// Get last sync info
		last := timeColumn{backend: hs.backend}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT sync_id, start_time FROM %s ORDER BY sync_id DESC LIMIT 1", runsTable))
		if err := row.Scan(&status.LastSyncID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last sync info: %w", err)
		}
		lastTime, err := last.get()
		if err != nil {
			return status, fmt.Errorf("failed to parse last sync time: %w", err)
		}
		status.LastSyncTime = lastTime

		// Get oldest sync time
		oldest := timeColumn{backend: hs.backend}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY sync_id ASC LIMIT 1", runsTable))
		if err := row.Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest sync time: %w", err)
		}
		oldestTime, err := oldest.get()
		if err != nil {
			return status, fmt.Errorf("failed to parse oldest sync time: %w", err)
		}
		status.OldestSyncTime = oldestTime
	}

	// Get table sizes
	for _, table := range []string{syncRunsTable, syncStepsTable} {
		row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		var count int64
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}
