// Package config loads whisperd's environment-driven configuration and
// provides a Watcher that reloads it when the .env file changes.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"whisperd/internal/models"
)

// Config holds all whisperd configuration values.
type Config struct {
	// HTTP server
	APIPort   string
	APIListen string

	// Worker / model selection
	LoadModelOnStartup    bool
	UnloadModelAfterS     time.Duration
	UseGPUIfAvailable     bool
	MaxModel              models.ModelSize
	CPUFallbackModel      models.ModelSize
	DevelopMode           bool

	// Registry
	DeleteResultsAfterM         time.Duration
	RefreshExpirationTimeOnUse  bool
	RunResultExpiryCheckM       time.Duration

	// Queue
	MaxTaskQueueSize int

	// Userinfo / logs endpoints
	AuthorizedMails map[string]struct{}

	// Logging
	LogDir      string
	LogFile     string
	LogLevel    string
	LogFormat   string
	LogPrivacyMode bool

	// Log rotation. LogRotationInterval/LogRotationBackupCount map onto
	// lumberjack's MaxAge (days) and MaxBackups. LogRotationWhen and
	// LogDateFormat are accepted for surface compatibility with the
	// reference implementation's TimedRotatingFileHandler-style knobs;
	// see DESIGN.md for what they do and don't control here.
	LogDateFormat          string
	LogRotationWhen        string
	LogRotationInterval    int
	LogRotationBackupCount int
}

// Load reads configuration from the environment, loading a .env file first
// if one is present. WHISPERD_ENV_FILE, when set, points at an explicit
// .env path instead of the current working directory (used by the
// installed service wrapper, which runs outside any project directory).
func Load() *Config {
	path := os.Getenv("WHISPERD_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		log.Println("config: no .env file found, using system environment variables")
	}
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		APIPort:   getEnv("API_PORT", "8080"),
		APIListen: getEnv("API_LISTEN", "0.0.0.0"),

		LoadModelOnStartup: getEnvAsBool("LOAD_MODEL_ON_STARTUP", false),
		UnloadModelAfterS:  time.Duration(getEnvAsInt("UNLOAD_MODEL_AFTER_S", 0)) * time.Second,
		UseGPUIfAvailable:  getEnvAsBool("USE_GPU_IF_AVAILABLE", false),
		MaxModel:           models.ModelSize(getEnv("MAX_MODEL", "")),
		CPUFallbackModel:   models.ModelSize(getEnv("CPU_FALLBACK_MODEL", "")),
		DevelopMode:        getEnvAsBool("DEVELOP_MODE", false),

		DeleteResultsAfterM:        time.Duration(getEnvAsInt("DELETE_RESULTS_AFTER_M", 60)) * time.Minute,
		RefreshExpirationTimeOnUse: getEnvAsBool("REFRESH_EXPIRATION_TIME_ON_USAGE", true),
		RunResultExpiryCheckM:      time.Duration(getEnvAsInt("RUN_RESULT_EXPIRY_CHECK_M", 1)) * time.Minute,

		MaxTaskQueueSize: getEnvAsInt("MAX_TASK_QUEUE_SIZE", 10),

		AuthorizedMails: parseMailSet(getEnv("AUTHORIZED_MAILS", "")),

		LogDir:         getEnv("LOG_DIR", "data/logs"),
		LogFile:        getEnv("LOG_FILE", "whisperd.log"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		LogPrivacyMode: getEnvAsBool("LOG_PRIVACY_MODE", false),

		LogDateFormat:          getEnv("LOG_DATE_FORMAT", "2006-01-02 15:04:05"),
		LogRotationWhen:        getEnv("LOG_ROTATION_WHEN", "midnight"),
		LogRotationInterval:    getEnvAsInt("LOG_ROTATION_INTERVAL", 1),
		LogRotationBackupCount: getEnvAsInt("LOG_ROTATION_BACKUP_COUNT", 7),
	}
}

func parseMailSet(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range strings.Split(raw, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			set[m] = struct{}{}
		}
	}
	return set
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Watcher reloads the whole Config when the .env file on disk changes and
// exposes the latest one through Current. It applies nothing itself: the
// front and worker processes load their configuration once at startup and
// do not create a Watcher, so a running process keeps its startup values.
type Watcher struct {
	watcher *fsnotify.Watcher
	mu      sync.RWMutex
	current *Config
	done    chan struct{}
}

// NewWatcher starts watching path (typically ".env") for writes and
// reloads the full config on each debounced change.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := "."
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		dir = path[:idx]
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	cw := &Watcher{
		watcher: w,
		current: Load(),
		done:    make(chan struct{}),
	}
	go cw.run(path)
	return cw, nil
}

func (w *Watcher) run(path string) {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() { w.reload(path) })
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Println("config: watcher error:", err)
		case <-w.done:
			return
		}
	}
}

// reload re-reads path with godotenv.Overload, since godotenv.Load never
// replaces a variable that an earlier load already set.
func (w *Watcher) reload(path string) {
	if err := godotenv.Overload(path); err != nil {
		log.Println("config: reload failed:", err)
		return
	}
	next := fromEnv()
	w.mu.Lock()
	w.current = next
	w.mu.Unlock()
	log.Println("config: reloaded from", path)
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
