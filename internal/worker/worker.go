// Package worker implements the ASR process: mode and model selection, the
// decode loop, and the message pump that bridges it to the Front process
// over a framed channel.
package worker

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"whisperd/internal/ipc"
	"whisperd/internal/models"
	"whisperd/internal/queue"
	"whisperd/pkg/logger"
)

// defaultIdlePoll is the message-pump poll interval used when
// UnloadModelAfterS is disabled (<=0); the worker still needs to wake
// periodically to notice a closed channel promptly even without an active
// eviction timer.
const defaultIdlePoll = 5 * time.Second

// Worker owns the job queue, the loaded model and the channel to the Front
// process. Run blocks until the channel is closed or an exit message
// arrives.
type Worker struct {
	cfg         Config
	channel     *ipc.Channel
	queue       *queue.BoundedQueue[models.Task]
	selector    *Selector
	transcriber Transcriber

	busy atomic.Bool
	stop chan struct{}
}

// New constructs a Worker. mode is fixed for the process lifetime, decided
// once at startup via SelectMode.
func New(cfg Config, mode models.Device, accel Accelerator, transcriber Transcriber, channel *ipc.Channel) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Worker{
		cfg:         cfg,
		channel:     channel,
		queue:       queue.New[models.Task](cfg.QueueCapacity),
		selector:    NewSelector(cfg, mode, accel, transcriber),
		transcriber: transcriber,
		stop:        make(chan struct{}),
	}, nil
}

// Run starts the decode loop and blocks running the message pump until the
// channel closes or an exit message is received. It always attempts to
// unload the resident model before returning.
func (w *Worker) Run() error {
	if w.cfg.LoadModelOnStartup {
		if _, err := w.selector.Load(""); err != nil {
			logger.Warn("could not preload model on startup", "err", err)
		}
	}

	decodeLoopDone := make(chan struct{})
	go func() {
		defer close(decodeLoopDone)
		w.decodeLoop()
	}()

	err := w.messagePump()

	close(w.stop)
	<-decodeLoopDone
	w.selector.Unload()
	return err
}

// decodeLoop consumes queued tasks and runs inference, one at a time,
// strictly FIFO. Exits once Run signals shutdown via w.stop.
func (w *Worker) decodeLoop() {
	for {
		taskPtr, ok := w.queue.NextWait(w.stop)
		if !ok {
			return
		}
		task := *taskPtr
		w.busy.Store(true)

		w.emitStatus()
		task.Status = models.StatusProcessing
		w.emitTaskUpdate(task)

		result, err := w.runModel(&task)
		if err != nil {
			logger.Error("inference failed", "task_id", logger.TaskID(task.UUID), "err", err)
			task.Status = models.StatusFailed
		} else {
			task.WhisperResult = &result
			task.UsedDevice = result.UsedDevice
			task.Status = models.StatusFinished
		}
		w.emitTaskUpdate(task)

		w.busy.Store(false)
		w.queue.ClearCurrent()
		w.emitStatus()
	}
}

// runModel implements §4.3.5: load the requested (or ceiling) model size,
// run inference, and stamp the result with timing and provenance.
func (w *Worker) runModel(task *models.Task) (models.WhisperResult, error) {
	requested := task.TargetModelSize
	if requested == "" {
		requested = w.cfg.MaxModelToUse
	}

	loadedSize, err := w.selector.Load(requested)
	w.emitStatus()
	if err != nil {
		return models.WhisperResult{}, fmt.Errorf("worker: load model: %w", err)
	}

	start := time.Now()
	result, err := w.transcriber.Transcribe(task.AudiofileName, task.TaskType, task.SourceLanguage)
	end := time.Now()
	if err != nil {
		return models.WhisperResult{}, fmt.Errorf("worker: transcribe: %w", err)
	}

	outputLanguage := result.Language
	if task.TaskType == models.TaskTranslate {
		outputLanguage = "en"
	}

	return models.WhisperResult{
		Text:           result.Text,
		Language:       result.Language,
		OutputLanguage: outputLanguage,
		Segments:       result.Segments,
		UsedModelSize:  loadedSize,
		UsedDevice:     w.selector.Mode(),
		StartTime:      start,
		EndTime:        end,
	}, nil
}

// messagePump is the main thread: §4.3.4. Blocks until the channel closes
// or an exit message arrives.
func (w *Worker) messagePump() error {
	pollInterval := w.cfg.UnloadModelAfterS
	evictionEnabled := pollInterval > 0
	if !evictionEnabled {
		pollInterval = defaultIdlePoll
	}

	for {
		msg, ok, err := w.channel.ReceivePoll(pollInterval)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("worker: receive: %w", err)
		}
		if !ok {
			if evictionEnabled {
				w.selector.Unload()
				w.emitStatus()
			}
			continue
		}

		switch msg.Type {
		case ipc.TypeExit:
			return nil
		case ipc.TypeStatus:
			w.emitStatus()
		case ipc.TypeDecode:
			w.handleDecode(msg)
		default:
			logger.Warn("worker: unknown message type, ignoring", "type", msg.Type)
		}
	}
}

func (w *Worker) handleDecode(msg ipc.Message) {
	payload, err := msg.DecodePayload()
	if err != nil {
		logger.Warn("worker: malformed decode message, dropping", "err", err)
		return
	}

	task := payload.Task
	if err := w.queue.Put(&task); err != nil {
		logger.Error("worker: queue full, dropping task", "task_id", logger.TaskID(task.UUID), "err", err)
		task.Status = models.StatusFailed
		w.emitTaskUpdate(task)
		return
	}
	w.emitStatus()
}

func (w *Worker) emitTaskUpdate(task models.Task) {
	msg, err := ipc.NewTaskUpdate(task)
	if err != nil {
		logger.Error("worker: encode task_update", "err", err)
		return
	}
	if err := w.channel.Send(msg); err != nil {
		logger.Error("worker: send task_update", "err", err)
	}
}

func (w *Worker) emitStatus() {
	queueStatus := make(map[string]int)
	for pos, taskPtr := range w.queue.Snapshot() {
		queueStatus[(*taskPtr).UUID] = pos
	}

	state := models.DecoderState{
		GPUMode:             w.selector.Mode() == models.DeviceAccelerator,
		MaxModelToUse:       w.cfg.MaxModelToUse,
		LastLoadedModelSize: w.selector.LastLoadedSize(),
		IsModelLoaded:       w.selector.LastLoadedSize() != "",
		CurrentlyBusy:       w.busy.Load(),
		TasksInQueue:        w.queue.Len(),
		ReceivedAt:          time.Now(),
	}

	msg, err := ipc.NewStatus(state, queueStatus)
	if err != nil {
		logger.Error("worker: encode status", "err", err)
		return
	}
	if err := w.channel.Send(msg); err != nil {
		logger.Error("worker: send status", "err", err)
	}
}
