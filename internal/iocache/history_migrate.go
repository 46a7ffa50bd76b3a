package iocache

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/autopush/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateHistory runs database migrations for the history store.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func MigrateHistory(backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	if backend == schema.NoneBackend {
		return fmt.Errorf("migrations are not supported for NoneBackend")
	}

	if backend == schema.MySQLBackend {
		// Migration files hold more than one statement
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil {
			return fmt.Errorf("failed to parse MySQL connection string: %w", err)
		}
		cfg.MultiStatements = true
		connStr = cfg.FormatDSN()
	}

	db, _, err := openDatabase(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// Verify connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Create a migrate driver instance
	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create SQLite migrate driver: %w", err)
		}

	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
		if err != nil {
			return fmt.Errorf("failed to create MySQL migrate driver: %w", err)
		}

	case schema.PostgreSQLBackend:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			return fmt.Errorf("failed to create PostgreSQL migrate driver: %w", err)
		}
	}

	// Each backend has its own dialect directory
	migrationFS, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}

	// Create source driver from embedded FS
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create migrate instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "autopush", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Get current version
	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	// Perform migration
	switch {
	case targetVersion < 0:
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to latest version: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migration needed. Database is already at the latest version.")
		} else {
			newVersion, _, _ := m.Version()
			fmt.Printf("Successfully migrated from version %d to version %d\n", currentVersion, newVersion)
		}

	case targetVersion == 0:
		// Migrate all the way down to version 0 (no migrations applied)
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back to version 0: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migration needed. Database is already at version 0")
		} else {
			fmt.Printf("Successfully rolled back from version %d to version 0\n", currentVersion)
		}

	default:
		err = m.Migrate(uint(targetVersion))
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. Database is already at version %d\n", targetVersion)
		} else {
			fmt.Printf("Successfully migrated from version %d to version %d\n", currentVersion, targetVersion)
		}
	}

	return nil
}
