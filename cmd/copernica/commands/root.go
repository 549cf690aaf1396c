// Package commands implements the copernica CLI's cobra command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the shared --config flag value for every subcommand that
// reads configuration.
var configPath string

// rootCmd is the top-level cobra command for copernica.
var rootCmd = &cobra.Command{
	Use:   "copernica",
	Short: "Run a copernica packet-routing node",
	Long:  "copernica runs a narrow-waist ICN packet/routing substrate node and prints its build information.",

	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to configuration file (YAML); defaults baked in if omitted")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
