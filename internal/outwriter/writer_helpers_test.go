package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name: "simple object",
			data: map[string]any{
				"name":  "test",
				"value": 42,
			},
			expected: `{
  "name": "test",
  "value": 42
}
`,
		},
		{
			name:     "string",
			data:     "hello",
			expected: `"hello"` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, tt.data))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"step", "stderr"}, func(w *csv.Writer) error {
		return w.Write([]string{"push", "rejected, non-fast-forward"})
	})
	require.NoError(t, err)
	assert.Equal(t, "step,stderr\npush,\"rejected, non-fast-forward\"\n", buf.String())

	err = writeCSVWithHeader(&buf, []string{"col"}, func(w *csv.Writer) error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		called := false
		err := writeWithFile("", func(w io.Writer) error {
			called = true
			return nil
		}, "Test message")
		require.NoError(t, err)
		assert.True(t, called, "Writer function should have been called")
	})

	t.Run("file", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "out.json")
		err := writeWithFile(tmpFile, func(w io.Writer) error {
			return writeJSON(w, map[string]int{"count": 3})
		}, "Wrote JSON")
		require.NoError(t, err)

		content, err := os.ReadFile(tmpFile)
		require.NoError(t, err)
		var result map[string]any
		require.NoError(t, json.Unmarshal(content, &result))
		assert.Equal(t, float64(3), result["count"])
	})

	t.Run("writer error", func(t *testing.T) {
		err := writeWithFile(filepath.Join(t.TempDir(), "x.txt"), func(w io.Writer) error {
			return assert.AnError
		}, "Test message")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/path/file.txt", func(w io.Writer) error {
			return nil
		}, "Test message")
		require.Error(t, err)
	})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12ms", formatDuration(12345*time.Microsecond))
	assert.Equal(t, "1.23s", formatDuration(1234*time.Millisecond))
	assert.Equal(t, "0s", formatDuration(0))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "", firstLine(""))
	assert.Equal(t, "fatal: no remote", firstLine("\n  fatal: no remote  \nhint: add one"))
	assert.Equal(t, "one", firstLine(strings.Repeat(" ", 3)+"one"))
}
