package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetTimestamps(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels_Quiet(t *testing.T) {
	buf := capture(t, false)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Section("Ingest")
	Warn("warn %d", 3)
	Error("error %d", 4)

	assert.Equal(t, "[WARN] warn 3\n[ERROR] error 4\n", buf.String())
}

func TestLevels_Verbose(t *testing.T) {
	buf := capture(t, true)

	Section("Query")
	Debug("k=%d", 30)
	Info("done")

	assert.Equal(t, "\n=== Query ===\n[DEBUG] k=30\n[INFO] done\n", buf.String())
}

func TestTimestamps(t *testing.T) {
	buf := capture(t, false)
	now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	SetTimestamps(true)

	Warn("queue closed")

	assert.Equal(t, "2024-03-01T12:00:00Z [WARN] queue closed\n", buf.String())
}

func TestEnabled(t *testing.T) {
	capture(t, false)
	assert.False(t, Enabled(LevelDebug))
	assert.True(t, Enabled(LevelWarn))

	SetVerbose(true)
	assert.True(t, Enabled(LevelDebug))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
}
