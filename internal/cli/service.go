package cli

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

var (
	installCmd = &cobra.Command{
		Use:   "install [env-file]",
		Short: "Install whisperd as a background service",
		Args:  cobra.MaximumNArgs(1),
		Run:   runInstall,
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the whisperd service",
		Run:   runStart,
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the whisperd service",
		Run:   runStop,
	}

	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the whisperd service",
		Run:   runUninstall,
	}

	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Tail the service logs",
		Run:   runLogs,
	}
)

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(logsCmd)
}

// program wraps the front process (RunServe) for kardianos.
type program struct{}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) run() {
	if err := setupServiceLogging(); err != nil {
		log.Printf("failed to set up file logging: %v", err)
	}
	log.Println("whisperd service starting...")

	cfg := GetInstallConfig()
	if cfg.EnvFile != "" {
		if err := os.Setenv("WHISPERD_ENV_FILE", cfg.EnvFile); err != nil {
			log.Printf("could not set WHISPERD_ENV_FILE: %v", err)
		}
	}

	if err := RunServe(cfg.SocketPath); err != nil {
		log.Printf("whisperd service exited with error: %v", err)
	}
}

func (p *program) Stop(s service.Service) error {
	log.Println("whisperd service stopping...")
	return nil
}

func getServiceConfig(envFile string) *service.Config {
	ex, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}

	args := []string{"service-run"}
	return &service.Config{
		Name:        "whisperd",
		DisplayName: "whisperd speech-to-text daemon",
		Description: "Accepts audio over HTTP and runs transcription/translation jobs on a worker process.",
		Executable:  ex,
		Arguments:   args,
	}
}

var serviceRunCmd = &cobra.Command{
	Use:    "service-run",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := setupServiceLogging(); err != nil {
			log.Printf("failed to set up file logging: %v", err)
		}
		log.Println("starting service-run command...")

		prg := &program{}
		s, err := service.New(prg, getServiceConfig(""))
		if err != nil {
			log.Fatalf("failed to create service: %v", err)
		}

		svcLogger, err := s.Logger(nil)
		if err != nil {
			log.Printf("failed to get system logger: %v", err)
		} else {
			_ = svcLogger.Info("whisperd service starting...")
		}

		if err = s.Run(); err != nil {
			if svcLogger != nil {
				_ = svcLogger.Error(err)
			}
			log.Fatalf("service failed to run: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serviceRunCmd)
}

func runInstall(cmd *cobra.Command, args []string) {
	var envFile string
	if len(args) > 0 {
		absPath, err := filepath.Abs(args[0])
		if err != nil {
			log.Fatalf("failed to get absolute path: %v", err)
		}
		envFile = absPath
	}

	socketPath := filepath.Join(os.TempDir(), "whisperd.sock")
	configPath, err := SaveInstallConfig(envFile, socketPath)
	if err != nil {
		log.Fatalf("failed to save install config: %v", err)
	}
	fmt.Printf("Install configuration saved to %s\n", configPath)

	s, err := service.New(&program{}, getServiceConfig(envFile))
	if err != nil {
		log.Fatal(err)
	}
	if err = s.Install(); err != nil {
		log.Fatalf("failed to install service: %v", err)
	}
	fmt.Println("Service installed successfully.")
}

func runStart(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig(""))
	if err != nil {
		log.Fatal(err)
	}
	if err = s.Start(); err != nil {
		log.Fatalf("failed to start service: %v", err)
	}
	fmt.Println("Service started.")
}

func runStop(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig(""))
	if err != nil {
		log.Fatal(err)
	}
	if err = s.Stop(); err != nil {
		log.Fatalf("failed to stop service: %v", err)
	}
	fmt.Println("Service stopped.")
}

func runUninstall(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, getServiceConfig(""))
	if err != nil {
		log.Fatal(err)
	}
	if err = s.Uninstall(); err != nil {
		log.Fatalf("failed to uninstall service: %v", err)
	}
	fmt.Println("Service uninstalled.")
}

func getLogFilePath() string {
	return filepath.Join(os.TempDir(), "whisperd-service.log")
}

func setupServiceLogging() error {
	logFile := getLogFilePath()
	f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	log.SetOutput(f)
	return nil
}

func runLogs(cmd *cobra.Command, args []string) {
	logFile := getLogFilePath()
	fmt.Printf("Tailing logs from %s...\n", logFile)

	c := exec.Command("tail", "-f", logFile)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("error tailing logs: %v\n", err)
	}
}
