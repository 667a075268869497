package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPipeOutputRoutesPackageLevelCallsThroughPipeWriter(t *testing.T) {
	Init("info")
	defer func() { pipedOut = nil }()

	var buf bytes.Buffer
	SetPipeOutput(&buf, "worker")

	Info("hello from worker", "key", "value")

	var rec PipedRecord
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "worker", rec.Process)
	assert.Equal(t, "hello from worker", rec.Msg)
	assert.Equal(t, "INFO", rec.Level)
}

func TestSetPipeOutputStillRespectsLevelFiltering(t *testing.T) {
	Init("warn")
	defer func() { pipedOut = nil }()

	var buf bytes.Buffer
	SetPipeOutput(&buf, "worker")

	Debug("should be filtered out")
	assert.Empty(t, buf.String())

	Error("should pass through")
	assert.NotEmpty(t, buf.String())
}

func TestConfigureRotationWritesToFile(t *testing.T) {
	dir := t.TempDir()
	defer func() {
		logWriter = os.Stdout
		Init("info")
	}()

	Init("info")
	ConfigureRotation(dir, "whisperd.log", 3, 7)
	Info("rotation smoke test")

	data, err := os.ReadFile(filepath.Join(dir, "whisperd.log"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "rotation smoke test"))
}

func TestConfigureRotationNoopWhenLogFileEmpty(t *testing.T) {
	before := logWriter
	ConfigureRotation(t.TempDir(), "", 3, 7)
	assert.Equal(t, before, logWriter)
}
