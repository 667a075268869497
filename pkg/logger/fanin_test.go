package logger

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeWriterEncodesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPipeWriter(&buf, "worker")
	pw.Info("model loaded", "size", "base")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `"process":"worker"`)
	assert.Contains(t, line, `"msg":"model loaded"`)
	assert.Contains(t, line, `"level":"INFO"`)
}

func TestFanInListenerRelaysRecordsThenStopsOnEOF(t *testing.T) {
	var buf bytes.Buffer
	pw := NewPipeWriter(&buf, "worker")
	pw.Info("hello from child")
	pw.Error("boom")

	listener := NewFanInListener(&buf)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		listener.Run()
	}()

	wg.Wait() // Run returns once the bytes.Buffer reader hits EOF
}

func TestTaskIDRedaction(t *testing.T) {
	EnablePrivacyMode(false)
	assert.Equal(t, "abc123", TaskID("abc123"))

	EnablePrivacyMode(true)
	defer EnablePrivacyMode(false)
	assert.Equal(t, redactedTaskID, TaskID("abc123"))
}

func TestFanInListenerStopsWhenPipeCloses(t *testing.T) {
	r, w := io.Pipe()
	listener := NewFanInListener(r)

	runDone := make(chan struct{})
	go func() {
		listener.Run()
		close(runDone)
	}()

	require.NoError(t, w.Close())

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("listener did not exit after pipe closed")
	}
}
