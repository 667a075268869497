package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog.Logger with convenience methods
type Logger struct {
	*slog.Logger
}

// LogLevel represents logging levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	// Default logger instance
	defaultLogger *Logger
	// Current log level
	currentLevel = LevelInfo
	// privacyMode redacts task UUIDs in all log output when enabled.
	privacyMode = false
	// logWriter is the sink Init builds its handler on top of. Overridden by
	// ConfigureRotation to additionally fan out to a rotating file.
	logWriter io.Writer = os.Stdout
	// pipedOut, when set by SetPipeOutput, makes every package-level log
	// call forward to a child-process log pipe instead of slog. Child
	// processes (the worker) must never write to the shared log sink
	// directly; this is the substitute collaborator they log through.
	pipedOut *PipeWriter
)

// SetPipeOutput routes every subsequent Debug/Info/Warn/Error call to a
// PipeWriter over w instead of the local slog handler, tagging every record
// with process. Meant to be called once, early, by a child process talking
// back to a FanInListener in its parent.
func SetPipeOutput(w io.Writer, process string) {
	pipedOut = NewPipeWriter(w, process)
}

// ConfigureRotation adds a rotating file sink alongside stdout, using
// lumberjack for size/age-based rotation. logFile empty disables file
// rotation entirely (stdout-only). backupCount and maxAgeDays map onto
// lumberjack's MaxBackups/MaxAge; must be called after Init, since it
// rebuilds the handler currently configured level.
func ConfigureRotation(logDir, logFile string, backupCount, maxAgeDays int) {
	if logFile == "" {
		return
	}
	path := logFile
	if logDir != "" {
		path = filepath.Join(logDir, logFile)
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxBackups: backupCount,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	logWriter = io.MultiWriter(os.Stdout, rotator)
	rebuildHandler()
}

// Init initializes the global logger with specified level
func Init(level string) {
	// Parse log level from environment or parameter
	switch strings.ToLower(level) {
	case "debug":
		currentLevel = LevelDebug
	case "info", "":
		currentLevel = LevelInfo
	case "warn", "warning":
		currentLevel = LevelWarn
	case "error":
		currentLevel = LevelError
	default:
		currentLevel = LevelInfo
	}

	rebuildHandler()
}

// rebuildHandler (re)creates the slog handler against logWriter at
// currentLevel. Called by Init and by ConfigureRotation, which changes
// logWriter after Init has already parsed the level.
func rebuildHandler() {
	// Configure slog level
	var slogLevel slog.Level
	switch currentLevel {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	}

	// Create handler with optimized settings
	opts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: false, // Clean logs without source info
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Clean timestamp format
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format("15:04:05")),
				}
			}
			// Clean level names
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				switch level {
				case slog.LevelDebug:
					a.Value = slog.StringValue("DEBUG")
				case slog.LevelInfo:
					a.Value = slog.StringValue("INFO ")
				case slog.LevelWarn:
					a.Value = slog.StringValue("WARN ")
				case slog.LevelError:
					a.Value = slog.StringValue("ERROR")
				}
			}
			return a
		},
	}

	// Use text handler for clean, readable output
	handler := slog.NewTextHandler(logWriter, opts)
	defaultLogger = &Logger{slog.New(handler)}
}

// Get returns the default logger instance
func Get() *Logger {
	if defaultLogger == nil {
		Init(os.Getenv("LOG_LEVEL"))
	}
	return defaultLogger
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	return currentLevel
}

// EnablePrivacyMode turns task-UUID redaction on or off for all subsequent
// TaskID() calls.
func EnablePrivacyMode(enabled bool) {
	privacyMode = enabled
}

// redactedTaskID is the fixed placeholder substituted for every task UUID
// in log output when privacy mode is enabled.
const redactedTaskID = "<task_uuid: XXXX...XXXX>"

// TaskID renders a task UUID for log output, redacted to redactedTaskID
// when privacy mode is enabled.
func TaskID(uuid string) string {
	if !privacyMode {
		return uuid
	}
	return redactedTaskID
}

// Convenience methods for common logging patterns

func Debug(msg string, args ...any) {
	if currentLevel > LevelDebug {
		return
	}
	if pipedOut != nil {
		pipedOut.Debug(msg, args...)
		return
	}
	Get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if currentLevel > LevelInfo {
		return
	}
	if pipedOut != nil {
		pipedOut.Info(msg, args...)
		return
	}
	Get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if currentLevel > LevelWarn {
		return
	}
	if pipedOut != nil {
		pipedOut.Warn(msg, args...)
		return
	}
	Get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if currentLevel > LevelError {
		return
	}
	if pipedOut != nil {
		pipedOut.Error(msg, args...)
		return
	}
	Get().Error(msg, args...)
}

// WithContext creates a logger with additional context
func WithContext(key string, value any) *Logger {
	return &Logger{Get().With(key, value)}
}

// Startup logging for key initialization steps
func Startup(step, message string, args ...any) {
	// Simple message at INFO level, technical details at DEBUG
	if currentLevel <= LevelInfo {
		// Clean, user-friendly startup message
		// \033[36m is Cyan color for the [+] prefix
		fmt.Printf("\033[36m[+]\033[0m %s\n", message)
	}
	if currentLevel <= LevelDebug {
		Debug("Startup step", append([]any{"step", step, "message", message}, args...)...)
	}
}

// TaskSubmitted logs a newly registered task.
func TaskSubmitted(taskID, taskType, audiofileName string) {
	Info("task submitted", "task_id", TaskID(taskID), "task_type", taskType, "file", audiofileName)
}

// TaskFinished logs a completed task.
func TaskFinished(taskID string, duration time.Duration, modelSize string) {
	Info("task finished", "task_id", TaskID(taskID), "duration", duration.String(), "model_size", modelSize)
}

// TaskFailed logs a task that ended in failure.
func TaskFailed(taskID string, duration time.Duration, reason string) {
	Error("task failed", "task_id", TaskID(taskID), "duration", duration.String(), "reason", reason)
}

// GinLogger is a gin middleware producing clean HTTP access logs, skipping
// high-frequency polling endpoints at INFO level.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		if privacyMode {
			if id := c.Query("task_id"); id != "" {
				raw = strings.ReplaceAll(raw, id, redactedTaskID)
			}
		}
		if raw != "" {
			path = path + "?" + raw
		}

		if currentLevel <= LevelInfo {
			switch {
			case strings.HasSuffix(path, "/status") || strings.Contains(path, "decoder_status"):
				return // skip status polling
			}
		}

		status := c.Writer.Status()
		statusColor := getStatusColor(status)

		if currentLevel <= LevelDebug {
			Debug("API request",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration", fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6),
				"ip", c.ClientIP(),
				"user_agent", c.Request.UserAgent())
		} else {
			fmt.Printf("INFO  %s %s %s %s%d%s %s\n",
				time.Now().Format("15:04:05"),
				c.Request.Method,
				path,
				statusColor,
				status,
				"\033[0m",
				fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6))
		}
	}
}

func getStatusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "\033[32m"
	case status >= 300 && status < 400:
		return "\033[33m"
	case status >= 400 && status < 500:
		return "\033[31m"
	case status >= 500:
		return "\033[35m"
	default:
		return "\033[37m"
	}
}

// SetGinOutput configures GIN to use a custom writer that suppresses default logs
func SetGinOutput() {
	gin.DefaultWriter = io.Discard
}
