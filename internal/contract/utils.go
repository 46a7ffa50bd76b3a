package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Sync label constants.
const (
	OKValue      = "OK"      // Step or sync succeeded
	FailedValue  = "Failed"  // Step or sync exited non-zero
	SkippedValue = "Skipped" // Step never produced an exit status
)

// Color variables for console output.
var (
	OKColor      = color.New(color.FgGreen, color.Bold) // OKColor represents a clean run.
	FailedColor  = color.New(color.FgRed, color.Bold)   // FailedColor represents standard danger.
	SkippedColor = color.New(color.FgYellow)            // SkippedColor represents standard caution, not bold.
	InfoColor    = color.New(color.FgCyan)              // InfoColor represents informational output.
)

// GetPlainLabel returns a plain text label for a git exit code.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(exitCode int) string {
	switch {
	case exitCode == 0:
		return OKValue
	case exitCode < 0:
		return SkippedValue
	default:
		return FailedValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
// It uses GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(exitCode int) string {
	text := GetPlainLabel(exitCode)

	switch text {
	case OKValue:
		return OKColor.Sprint(text)
	case FailedValue:
		return FailedColor.Sprint(text)
	default:
		return SkippedColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// escapesRoot reports whether a relative path climbs out of its base.
// Names that merely start with two dots, like "..env", stay inside.
func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RelativeEventPath returns path relative to root using forward slashes.
// Paths outside root are returned cleaned but otherwise unchanged.
func RelativeEventPath(root, path string) string {
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(root, path); err == nil && !escapesRoot(r) {
			rel = r
		}
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	return strings.TrimPrefix(rel, "./")
}

// IsMetadataPath reports whether a path relative to the watch root falls in
// the metadata directory. Matching is by substring, so "sub/.git/index" and
// ".git/HEAD" are filtered along with names such as ".gitignore".
func IsMetadataPath(relPath, metadataDir string) bool {
	if metadataDir == "" {
		return false
	}
	return strings.Contains(relPath, metadataDir)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' are treated
// as prefixes. Patterns starting with '.' are treated as suffix (extension) matches.
// A user can provide patterns like "vendor/", "node_modules/", "*.swp".
func ShouldIgnore(path string, excludes []string) bool {
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		// If the pattern contains glob characters, try filepath.Match.
		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			// Also try matching against the base filename (e.g. *.swp)
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		// Handle prefix, suffix, or substring matches
		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) || path == strings.TrimSuffix(ex, "/") {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for sync history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".autopush_history.db"
	}
	return filepath.Join(homeDir, ".autopush_history.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
