// Package api is the HTTP collaborator: thin gin handlers translating
// requests into Coordinator calls and Task/DecoderState into JSON.
package api

import (
	"archive/zip"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"whisperd/internal/audioprobe"
	"whisperd/internal/config"
	"whisperd/internal/coordinator"
	"whisperd/internal/models"
	"whisperd/internal/registry"
	"whisperd/internal/subtitles"
	"whisperd/pkg/logger"
)

// Handler holds the collaborators every route needs.
type Handler struct {
	cfg         *config.Config
	coordinator *coordinator.Coordinator
	registry    *registry.Registry[*models.Task]
	probe       audioprobe.Probe
	stagingDir  string
}

// NewHandler constructs a Handler. stagingDir is where uploaded audio is
// persisted while a Task is in flight (typically os.TempDir()).
func NewHandler(cfg *config.Config, coord *coordinator.Coordinator, reg *registry.Registry[*models.Task], probe audioprobe.Probe, stagingDir string) *Handler {
	return &Handler{
		cfg:         cfg,
		coordinator: coord,
		registry:    reg,
		probe:       probe,
		stagingDir:  stagingDir,
	}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Transcribe handles POST /api/v1/transcribe.
func (h *Handler) Transcribe(c *gin.Context) {
	h.submit(c, models.TaskTranscribe)
}

// Translate handles POST /api/v1/translate. Output language is forced to
// English by the Worker; the Front only needs to tag the task type.
func (h *Handler) Translate(c *gin.Context) {
	h.submit(c, models.TaskTranslate)
}

func (h *Handler) submit(c *gin.Context, taskType models.TaskType) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field 'file'"})
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer upload.Close()

	staged, err := h.coordinator.Stage(h.stagingDir, upload)
	if err != nil {
		logger.Error("api: failed to stage upload", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	if err := h.probe.Probe(staged.Path); err != nil {
		os.Remove(staged.Path)
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file is not valid audio"})
		return
	}

	task := models.NewTask(staged.Path, string(taskType))
	task.OriginalFileName = fileHeader.Filename
	task.SourceLanguage = c.Query("language")

	if err := h.coordinator.Submit(task); err != nil {
		os.Remove(staged.Path)
		if errors.Is(err, coordinator.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is full, try again later"})
			return
		}
		logger.Error("api: failed to submit task", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not submit task"})
		return
	}

	logger.TaskSubmitted(task.UUID, string(task.TaskType), task.OriginalFileName)
	c.JSON(http.StatusOK, task.ToResponse())
}

// Status handles GET /api/v1/status?task_id=….
func (h *Handler) Status(c *gin.Context) {
	task, ok := h.lookupTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task.ToResponse())
}

// SRT handles GET /api/v1/srt?task_id=…, streaming a subtitle file for a
// finished task.
func (h *Handler) SRT(c *gin.Context) {
	task, ok := h.lookupTask(c)
	if !ok {
		return
	}
	if task.Status != models.StatusFinished || task.WhisperResult == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task has no subtitle output yet"})
		return
	}

	filename := fmt.Sprintf("%s_%s.srt", task.OriginalFileName, task.WhisperResult.OutputLanguage)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Writer.Header().Set("Content-Type", "text/plain")
	c.Status(http.StatusOK)
	if err := subtitles.Render(c.Writer, task.WhisperResult.Segments); err != nil {
		logger.Error("api: failed to render srt", "task_id", logger.TaskID(task.UUID), "err", err)
	}
}

func (h *Handler) lookupTask(c *gin.Context) (*models.Task, bool) {
	taskID := c.Query("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id not valid"})
		return nil, false
	}
	task, ok := h.registry.Get(taskID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id not valid"})
		return nil, false
	}
	return task, true
}

// DecoderStatus handles GET /api/v1/decoder_status.
func (h *Handler) DecoderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.State())
}

// DecoderStatusRefresh handles GET /api/v1/decoder_status_refresh. It asks
// the Worker for a fresh snapshot without waiting for the reply.
func (h *Handler) DecoderStatusRefresh(c *gin.Context) {
	if err := h.coordinator.RefreshDecoderStatus(); err != nil {
		logger.Error("api: failed to request decoder status refresh", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reach worker"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh_requested"})
}

// UserInfo handles GET /api/v1/userinfo, echoing the trusted headers an
// upstream proxy is expected to set.
func (h *Handler) UserInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"email":      c.GetHeader("X-Email"),
		"user":       c.GetHeader("X-User"),
		"user_agent": c.GetHeader("User-Agent"),
	})
}

// Logs handles GET /api/v1/logs, gated by AUTHORIZED_MAILS, returning a zip
// of the configured log directory.
func (h *Handler) Logs(c *gin.Context) {
	email := c.GetHeader("X-Email")
	if _, ok := h.cfg.AuthorizedMails[email]; !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		return
	}

	entries, err := os.ReadDir(h.cfg.LogDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list logs"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="whisperd-logs-%s.zip"`, time.Now().UTC().Format("20060102T150405Z")))
	c.Writer.Header().Set("Content-Type", "application/zip")
	c.Status(http.StatusOK)

	zw := zip.NewWriter(c.Writer)
	defer zw.Close()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(h.cfg.LogDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("api: skipping unreadable log file", "path", path, "err", err)
			continue
		}
		w, err := zw.Create(entry.Name())
		if err != nil {
			logger.Warn("api: could not add log file to archive", "path", path, "err", err)
			continue
		}
		if _, err := w.Write(data); err != nil {
			logger.Warn("api: could not write log file into archive", "path", path, "err", err)
		}
	}
}
