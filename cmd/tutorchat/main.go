package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tutorchat",
	Short: "TutorChat - conversation engine for the tutoring platform",
	Long: `tutorchat drives tutoring conversations against the platform backend.

Examples:
  # Interactive chat
  tutorchat chat --config tutorchat.yaml

  # List stored sessions
  tutorchat sessions`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)

	rootCmd.PersistentFlags().String("config", "", "Configuration file (YAML)")
}
