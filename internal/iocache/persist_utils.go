package iocache

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/autopush/schema"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName validates that the table name is a safe SQL identifier.
// It ensures the name consists only of alphanumeric characters and underscores,
// starting with a letter or underscore, to prevent SQL injection.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// placeholders returns n comma-separated bind parameters for the backend.
func placeholders(backend schema.DatabaseBackend, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if backend == schema.PostgreSQLBackend {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}

// timeColumn scans a timestamp column the way each backend stores it.
// SQLite keeps RFC3339 text while MySQL and PostgreSQL use native types.
type timeColumn struct {
	backend schema.DatabaseBackend
	text    string
	value   time.Time
}

func (c *timeColumn) dest() any {
	if c.backend == schema.SQLiteBackend {
		return &c.text
	}
	return &c.value
}

func (c *timeColumn) get() (time.Time, error) {
	if c.backend != schema.SQLiteBackend {
		return c.value, nil
	}
	t, err := time.Parse(time.RFC3339Nano, c.text)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", c.text, err)
	}
	return t, nil
}
