// Package cli is the whisperd command-line surface: cobra root command plus
// serve/worker/service subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "whisperd",
	Short: "whisperd speech-to-text daemon",
	Long:  `whisperd accepts audio over HTTP, queues transcription/translation jobs, and runs them on a worker process that owns the ASR models.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitConfig)
}
