// Package coordinator runs inside the Front process: it owns the listener
// that drains the Worker's channel, the submission path that hands new work
// to the Worker, and the shutdown orchestrator that tears both down on a
// bounded deadline.
package coordinator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"whisperd/internal/ipc"
	"whisperd/internal/models"
	"whisperd/internal/registry"
	"whisperd/pkg/logger"
)

// listenerPoll is the Listener thread's channel poll timeout, short enough
// to notice a shutdown request promptly.
const listenerPoll = 500 * time.Millisecond

// ErrQueueFull is returned by Submit when the cached Worker state reports no
// room for another task. Chosen over letting the Worker enqueue-then-fail:
// the Front already has a recent queue-depth signal from the last status
// message, so it can reject synchronously instead of constructing a Task
// the registry would immediately have to mark failed.
var ErrQueueFull = errors.New("coordinator: queue is full")

// StagedFile is an upload persisted to a temp file while its Task is in
// flight. The Listener removes it through discard when a terminal
// task_update for its Task arrives.
type StagedFile struct {
	Path string
}

// Coordinator bridges the HTTP collaborator and the Worker process.
type Coordinator struct {
	channel       *ipc.Channel
	registry      *registry.Registry[*models.Task]
	queueCapacity int

	stagedMu sync.Mutex
	staged   map[string]*StagedFile

	stateMu sync.RWMutex
	state   models.DecoderState

	refreshGroup singleflight.Group

	stop         chan struct{}
	listenerDone chan struct{}
}

// New constructs a Coordinator. queueCapacity must match the Worker's
// configured queue size so the pre-enqueue capacity check is meaningful.
func New(channel *ipc.Channel, reg *registry.Registry[*models.Task], queueCapacity int) *Coordinator {
	return &Coordinator{
		channel:       channel,
		registry:      reg,
		queueCapacity: queueCapacity,
		staged:        make(map[string]*StagedFile),
		stop:          make(chan struct{}),
		listenerDone:  make(chan struct{}),
	}
}

// State returns the current DecoderState mirror.
func (c *Coordinator) State() models.DecoderState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// RunListener drains the channel until it closes or Shutdown is called.
// Intended to run in its own goroutine; signals listenerDone on return.
func (c *Coordinator) RunListener() {
	defer close(c.listenerDone)

	for {
		select {
		case <-c.stop:
			logger.Info("coordinator: stop flag set, listener exiting")
			return
		default:
		}

		msg, ok, err := c.channel.ReceivePoll(listenerPoll)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("coordinator: worker channel closed, listener exiting")
				return
			}
			logger.Error("coordinator: listener read error", "err", err)
			continue
		}
		if !ok {
			continue
		}

		switch msg.Type {
		case ipc.TypeStatus:
			c.handleStatus(msg)
		case ipc.TypeTaskUpdate:
			c.handleTaskUpdate(msg)
		default:
			logger.Warn("coordinator: unknown message type, ignoring", "type", msg.Type)
		}
	}
}

func (c *Coordinator) handleStatus(msg ipc.Message) {
	payload, err := msg.StatusPayload()
	if err != nil {
		logger.Warn("coordinator: malformed status message, dropping", "err", err)
		return
	}

	c.stateMu.Lock()
	c.state = payload.State
	c.stateMu.Unlock()

	for taskID, pos := range payload.QueueStatus {
		task, ok := c.registry.Get(taskID)
		if !ok {
			continue
		}
		task.PositionInQueue = pos
	}
}

func (c *Coordinator) handleTaskUpdate(msg ipc.Message) {
	payload, err := msg.TaskUpdatePayload()
	if err != nil {
		logger.Warn("coordinator: malformed task_update message, dropping", "err", err)
		return
	}

	task := payload.Task
	logger.Info("coordinator: task update", "task_id", logger.TaskID(task.UUID), "status", task.Status)
	c.registry.Put(task.UUID, &task)

	if task.Status == models.StatusFinished || task.Status == models.StatusFailed {
		c.discard(task.AudiofileName)
	}
}

// Stage persists body to a temp file under dir and tracks it for later
// release. The caller must construct the Task with AudiofileName set to
// the returned StagedFile.Path.
func (c *Coordinator) Stage(dir string, body io.Reader) (*StagedFile, error) {
	f, err := os.CreateTemp(dir, "whisperd-upload-*")
	if err != nil {
		return nil, fmt.Errorf("coordinator: stage upload: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("coordinator: write staged upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("coordinator: close staged upload: %w", err)
	}

	staged := &StagedFile{Path: f.Name()}
	c.stagedMu.Lock()
	c.staged[staged.Path] = staged
	c.stagedMu.Unlock()
	return staged, nil
}

// discard deletes the staged file for path exactly once (Stage has already
// closed it); later calls for the same path do nothing.
func (c *Coordinator) discard(path string) {
	c.stagedMu.Lock()
	staged, ok := c.staged[path]
	if ok {
		delete(c.staged, path)
	}
	c.stagedMu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("coordinator: could not remove staged file", "path", path, "err", err)
	}
}

// Submit registers task and forwards it to the Worker. Returns ErrQueueFull
// without sending anything if the cached state shows no room.
func (c *Coordinator) Submit(task *models.Task) error {
	c.stateMu.RLock()
	tasksInQueue := c.state.TasksInQueue
	c.stateMu.RUnlock()

	if tasksInQueue >= c.queueCapacity {
		return ErrQueueFull
	}

	c.registry.Put(task.UUID, task)

	msg, err := ipc.NewDecode(*task)
	if err != nil {
		return fmt.Errorf("coordinator: encode decode message: %w", err)
	}
	if err := c.channel.Send(msg); err != nil {
		return fmt.Errorf("coordinator: send decode message: %w", err)
	}
	return nil
}

// RefreshDecoderStatus asks the Worker for a fresh status snapshot. It does
// not block for the reply; singleflight only coalesces concurrent callers
// into a single outbound request so a burst of polling HTTP clients doesn't
// multiply channel traffic.
func (c *Coordinator) RefreshDecoderStatus() error {
	_, err, _ := c.refreshGroup.Do("status", func() (any, error) {
		return nil, c.channel.Send(ipc.Message{Type: ipc.TypeStatus})
	})
	return err
}
