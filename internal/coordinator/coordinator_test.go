package coordinator

import (
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperd/internal/ipc"
	"whisperd/internal/models"
	"whisperd/internal/registry"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *ipc.Channel) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})

	reg, err := registry.New[*models.Task](time.Minute)
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	c := New(ipc.NewChannel(serverConn), reg, 4)
	return c, ipc.NewChannel(clientConn)
}

func TestHandleStatusUpdatesStateAndTaskPositions(t *testing.T) {
	c, workerSide := newTestCoordinator(t)

	task := models.NewTask("/tmp/a.wav", "transcribe")
	c.registry.Put(task.UUID, task)

	go c.RunListener()
	t.Cleanup(func() { close(c.stop) })

	msg, err := ipc.NewStatus(models.DecoderState{TasksInQueue: 2}, map[string]int{task.UUID: 1})
	require.NoError(t, err)
	require.NoError(t, workerSide.Send(msg))

	require.Eventually(t, func() bool {
		return c.State().TasksInQueue == 2
	}, time.Second, 10*time.Millisecond)

	got, ok := c.registry.Get(task.UUID)
	require.True(t, ok)
	assert.Equal(t, 1, got.PositionInQueue)
}

func TestHandleTaskUpdateDiscardsStagedFileOnTerminalStatus(t *testing.T) {
	c, workerSide := newTestCoordinator(t)

	f, err := os.CreateTemp(t.TempDir(), "staged-*")
	require.NoError(t, err)
	f.Close()

	c.stagedMu.Lock()
	c.staged[f.Name()] = &StagedFile{Path: f.Name()}
	c.stagedMu.Unlock()

	task := models.NewTask(f.Name(), "transcribe")
	task.Status = models.StatusFinished

	go c.RunListener()
	t.Cleanup(func() { close(c.stop) })

	msg, err := ipc.NewTaskUpdate(*task)
	require.NoError(t, err)
	require.NoError(t, workerSide.Send(msg))

	require.Eventually(t, func() bool {
		_, err := os.Stat(f.Name())
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	c.stagedMu.Lock()
	_, stillStaged := c.staged[f.Name()]
	c.stagedMu.Unlock()
	assert.False(t, stillStaged)
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.stateMu.Lock()
	c.state.TasksInQueue = c.queueCapacity
	c.stateMu.Unlock()

	task := models.NewTask("/tmp/a.wav", "transcribe")
	err := c.Submit(task)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestSubmitSendsDecodeMessageWhenRoomAvailable(t *testing.T) {
	c, workerSide := newTestCoordinator(t)

	task := models.NewTask("/tmp/a.wav", "transcribe")

	done := make(chan error, 1)
	go func() { done <- c.Submit(task) }()

	msg, err := workerSide.Receive()
	require.NoError(t, err)
	assert.Equal(t, ipc.TypeDecode, msg.Type)

	require.NoError(t, <-done)

	got, ok := c.registry.Get(task.UUID)
	require.True(t, ok)
	assert.Equal(t, task.UUID, got.UUID)
}

func TestStageWritesBodyAndDiscardRemovesItExactlyOnce(t *testing.T) {
	c, _ := newTestCoordinator(t)

	dir := t.TempDir()
	staged, err := c.Stage(dir, strings.NewReader("hello"))
	require.NoError(t, err)

	data, err := os.ReadFile(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	c.discard(staged.Path)
	_, err = os.Stat(staged.Path)
	assert.True(t, os.IsNotExist(err))

	// Second discard of the same path must be a harmless no-op.
	c.discard(staged.Path)
}

func TestRunListenerExitsOnChannelClose(t *testing.T) {
	c, workerSide := newTestCoordinator(t)

	go c.RunListener()
	workerSide.Close()

	select {
	case <-c.listenerDone:
	case <-time.After(time.Second):
		t.Fatal("listener did not exit after channel close")
	}
}

func TestWaitForReturnsFalseOnTimeout(t *testing.T) {
	never := make(chan struct{})
	start := time.Now()
	ok := waitFor(never, 50*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitForReturnsTrueWhenClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	assert.True(t, waitFor(done, time.Second))
}

func TestShutdownStopsListenerAndSendsExit(t *testing.T) {
	c, workerSide := newTestCoordinator(t)
	go c.RunListener()

	exited := make(chan struct{})
	close(exited) // pretend the worker already exited

	go func() {
		msg, err := workerSide.Receive()
		if err == nil && msg.Type == ipc.TypeExit {
			workerSide.Close()
		}
	}()

	done := make(chan struct{})
	go func() {
		c.Shutdown(WorkerProcess{Process: nil, Exited: exited})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}

	select {
	case <-c.listenerDone:
	default:
		t.Fatal("listener should have stopped")
	}
}
