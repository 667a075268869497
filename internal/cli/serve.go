package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"whisperd/internal/api"
	"whisperd/internal/audioprobe"
	"whisperd/internal/config"
	"whisperd/internal/coordinator"
	"whisperd/internal/ipc"
	"whisperd/internal/models"
	"whisperd/internal/registry"
	"whisperd/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the whisperd front process",
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunServe(""); err != nil {
			logger.Error("serve: fatal error", "err", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// RunServe wires config, logging, the in-memory registry, the worker
// subprocess and its IPC channel, the HTTP collaborator, and the
// signal-triggered shutdown orchestrator. socketPath overrides the
// generated temp-dir socket path when non-empty (used by the installed
// service wrapper so the path is stable across restarts).
func RunServe(socketPath string) error {
	logger.Startup("config", "loading configuration")
	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.EnablePrivacyMode(cfg.LogPrivacyMode)
	logger.ConfigureRotation(cfg.LogDir, cfg.LogFile, cfg.LogRotationBackupCount, cfg.LogRotationInterval)
	logger.Startup("logging", fmt.Sprintf("log level %s", cfg.LogLevel))

	reg, err := registry.New[*models.Task](cfg.DeleteResultsAfterM,
		registry.WithRefreshOnAccess[*models.Task](cfg.RefreshExpirationTimeOnUse),
		registry.WithSweepInterval[*models.Task](cfg.RunResultExpiryCheckM))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer reg.Close()
	logger.Startup("registry", "task registry ready")

	if socketPath == "" {
		socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("whisperd-%d.sock", os.Getpid()))
	}
	os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("serve: listen on worker socket: %w", err)
	}
	defer os.Remove(socketPath)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("serve: resolve own executable: %w", err)
	}

	// The worker must not write to this process's log sink directly (it runs
	// as a separate process with its own in-memory handler state); instead
	// its stdout/stderr are redirected into a pipe carrying newline-delimited
	// PipedRecord JSON, and a FanInListener here re-emits each record through
	// the front's logger, substituting the worker's process name.
	logR, logW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("serve: open worker log pipe: %w", err)
	}

	logger.Startup("worker", "spawning worker subprocess")
	workerCmd := exec.Command(exe, "worker", "--socket", socketPath)
	workerCmd.Stdout = logW
	workerCmd.Stderr = logW
	if err := workerCmd.Start(); err != nil {
		logR.Close()
		logW.Close()
		return fmt.Errorf("serve: start worker subprocess: %w", err)
	}
	logW.Close() // the child holds the only remaining write end now

	fanIn := logger.NewFanInListener(logR)
	go fanIn.Run()

	workerExited := make(chan struct{})
	go func() {
		workerCmd.Wait()
		close(workerExited)
	}()

	conn, err := acceptWithTimeout(listener, 30*time.Second)
	if err != nil {
		return fmt.Errorf("serve: accept worker connection: %w", err)
	}
	logger.Startup("worker", "worker connected")

	channel := ipc.NewChannel(conn)
	coord := coordinator.New(channel, reg, cfg.MaxTaskQueueSize)
	go coord.RunListener()

	handler := api.NewHandler(cfg, coord, reg, audioprobe.NewFFProbe(), os.TempDir())
	router := api.SetupRoutes(handler)

	httpServer := &http.Server{
		Addr:    cfg.APIListen + ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		logger.Startup("http", fmt.Sprintf("listening on %s", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve: http server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals()...)
	<-quit
	logger.Info("serve: shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("serve: http server did not shut down cleanly", "err", err)
	}

	coord.Shutdown(coordinator.WorkerProcess{Process: workerCmd.Process, Exited: workerExited})
	fanIn.Stop()
	logger.Info("serve: shutdown complete")
	return nil
}

func acceptWithTimeout(listener net.Listener, timeout time.Duration) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := listener.Accept()
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timed out waiting for worker to connect")
	}
}
