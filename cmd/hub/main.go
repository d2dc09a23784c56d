package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ucu-innovators/hub/internal/telemetry"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hub",
	Short: "Innovators Hub - project submission and review platform",
	Long: `Innovators Hub serves the project submission, review and browsing API.

Commands:
  hub serve            Start the HTTP API
  hub worker           Consume password reset notifications
  hub migrate          Create or update the database schema
  hub user create      Create an account of any role, including admin
  hub user set-password
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ServeCmd)
	rootCmd.AddCommand(WorkerCmd)
	rootCmd.AddCommand(MigrateCmd)
	rootCmd.AddCommand(UserCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Innovators Hub version %s\n", telemetry.Version)
	},
}
