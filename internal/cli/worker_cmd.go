package cli

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"whisperd/internal/config"
	"whisperd/internal/ipc"
	"whisperd/internal/whispercli"
	"whisperd/internal/worker"
	"whisperd/pkg/logger"
)

var workerSocketFlag string

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run the whisperd worker process (spawned by serve)",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunWorker(workerSocketFlag); err != nil {
			logger.Error("worker: fatal error", "err", err)
			os.Exit(1)
		}
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerSocketFlag, "socket", "", "unix socket to connect to the front process on")
	rootCmd.AddCommand(workerCmd)
}

// RunWorker dials the front process's socket and runs the decode loop and
// message pump until it receives an exit message or the channel closes.
func RunWorker(socketPath string) error {
	if socketPath == "" {
		return fmt.Errorf("worker: --socket is required")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	logger.EnablePrivacyMode(cfg.LogPrivacyMode)
	// Never write to stdout/stderr directly here: RunServe redirected both
	// into a pipe back to the front process, so route every subsequent
	// logger call through it instead, tagged as "worker".
	logger.SetPipeOutput(os.Stdout, "worker")

	workerCfg := worker.ResolveCPUFallback(worker.Config{
		UseAcceleratorIfAvailable: cfg.UseGPUIfAvailable,
		MaxModelToUse:             cfg.MaxModel,
		CPUFallbackModel:          cfg.CPUFallbackModel,
		UnloadModelAfterS:         cfg.UnloadModelAfterS,
		LoadModelOnStartup:        cfg.LoadModelOnStartup,
		DevelopMode:               cfg.DevelopMode,
		QueueCapacity:             cfg.MaxTaskQueueSize,
	})

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("worker: dial front socket: %w", err)
	}
	defer conn.Close()

	channel := ipc.NewChannel(conn)
	accel := worker.NullAccelerator{}
	mode := worker.SelectMode(accel, workerCfg.UseAcceleratorIfAvailable)

	transcriber := whispercli.New()

	w, err := worker.New(workerCfg, mode, accel, transcriber, channel)
	if err != nil {
		return fmt.Errorf("worker: construct worker: %w", err)
	}

	logger.Info("worker: starting", "mode", mode)
	return w.Run()
}
