// Package cli implements the taskctl command-line interface using Cobra.
// Each subcommand maps to one operation of the server's task API (submit,
// status, result, cancel, list).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "taskctl — control a running taskboard server",
	Long: `taskctl submits, inspects, and cancels background tasks on a
taskboard server over its HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:8080", "base URL of the taskboard server")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
