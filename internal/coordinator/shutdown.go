package coordinator

import (
	"os"
	"time"

	"whisperd/internal/ipc"
	"whisperd/pkg/logger"
)

// WorkerProcess is the handle the shutdown orchestrator needs on the Worker
// subprocess: its OS process and a channel closed once it has exited.
type WorkerProcess struct {
	Process *os.Process
	Exited  <-chan struct{}
}

// Shutdown runs the bounded shutdown sequence: ask the Worker to exit,
// join with a 5s deadline, force-kill and join with a 2s deadline if it's
// still alive, then stop the Listener and join it with a 5s deadline.
// Exactly matches the ordering the ordering guarantee in §4.4 depends on:
// every terminal task_update the Listener observes releases its staged
// file before this returns.
func (c *Coordinator) Shutdown(worker WorkerProcess) {
	logger.Info("coordinator: shutdown initiated")

	if exitMsg, err := ipc.NewExit("shutdown"); err == nil {
		if err := c.channel.Send(exitMsg); err != nil {
			logger.Warn("coordinator: could not send exit message to worker", "err", err)
		}
	}
	if worker.Process != nil {
		if err := terminateProcessGroup(worker.Process); err != nil {
			logger.Warn("coordinator: could not signal worker to terminate", "err", err)
		}
	}

	if waitFor(worker.Exited, 5*time.Second) {
		logger.Info("coordinator: worker exited cleanly")
	} else {
		logger.Warn("coordinator: worker did not exit in time, force-killing")
		if worker.Process != nil {
			if err := killProcessGroup(worker.Process); err != nil {
				logger.Error("coordinator: force-kill failed", "err", err)
			}
		}
		if waitFor(worker.Exited, 2*time.Second) {
			logger.Info("coordinator: worker is dead")
		} else {
			logger.Error("coordinator: worker still alive after force-kill, giving up")
		}
	}

	close(c.stop)
	if waitFor(c.listenerDone, 5*time.Second) {
		logger.Info("coordinator: listener stopped")
	} else {
		logger.Warn("coordinator: listener did not stop gracefully in time")
	}
}

func waitFor(done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
