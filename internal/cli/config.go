package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// InstallConfig is the small set of knobs the installed-service wrapper
// persists across `install`/`start`/`stop` invocations. Everything else
// (API_PORT, MAX_MODEL, ...) comes from the environment/.env, same as when
// running `whisperd serve` directly.
type InstallConfig struct {
	EnvFile    string `mapstructure:"env_file"`
	SocketPath string `mapstructure:"socket_path"`
}

// InitConfig initializes viper to read ~/.whisperd.yaml.
func InitConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	viper.AddConfigPath(home)
	viper.SetConfigType("yaml")
	viper.SetConfigName(".whisperd")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		// Config file found and loaded
	}
}

// SaveInstallConfig persists the install configuration to ~/.whisperd.yaml.
func SaveInstallConfig(envFile, socketPath string) (string, error) {
	if envFile != "" {
		viper.Set("env_file", envFile)
	}
	if socketPath != "" {
		viper.Set("socket_path", socketPath)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(home, ".whisperd.yaml")
	return configPath, viper.WriteConfigAs(configPath)
}

// GetInstallConfig returns the current install configuration.
func GetInstallConfig() *InstallConfig {
	return &InstallConfig{
		EnvFile:    viper.GetString("env_file"),
		SocketPath: viper.GetString("socket_path"),
	}
}
