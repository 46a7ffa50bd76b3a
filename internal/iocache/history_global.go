package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &HistoryStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetHistoryDBFilePath returns the path to the SQLite DB file for history storage.
func GetHistoryDBFilePath() string {
	return contract.GetHistoryDBFilePath()
}

// InitStores initializes the global manager with a history store.
// An empty backend leaves the manager without a store.
func InitStores(backend schema.DatabaseBackend, connStr string) error {
	var initErr error

	initOnce.Do(func() {
		if backend == "" {
			return
		}
		store, err := NewHistoryStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize history store: %w", err)
			return
		}

		Manager.Lock()
		Manager.history = store
		Manager.Unlock()
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.history != nil {
			_ = Manager.history.Close()
		}
	})
}

// ClearHistory clears the history data for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the history tables.
// For NoneBackend, it does nothing.
func ClearHistory(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend:
		return clearSQLTables("mysql", connStr, backend, historyTables()...)

	case schema.PostgreSQLBackend:
		return clearSQLTables("pgx", connStr, backend, historyTables()...)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported history backend for clearing: %s", backend)
	}
}

// historyTables lists tables in drop order, children first.
func historyTables() []string {
	return []string{syncStepsTable, syncRunsTable}
}

// clearSQLTables connects to the SQL database and drops each table if it exists.
func clearSQLTables(driverName, connStr string, backend schema.DatabaseBackend, tableNames ...string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, tableName := range tableNames {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", tableName, err)
		}
	}

	return nil
}
