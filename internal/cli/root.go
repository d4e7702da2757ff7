// Package cli provides the command-line interface for bridgesim.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/RMahshie/bridgesim/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	logLevel string
	logFile  string
	verbose  bool

	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bridgesim",
	Short: "S-parameter extraction for a bridge-gap resonator",
	Long: `bridgesim configures a time-domain field simulation of a metallic bridge
over a gap between two pads on a hollow dielectric tube, runs the reference and
scattered passes, and writes S11/S21 and the gap field trace to an archive.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if verbose {
			level = "debug"
		}
		closeLog = config.SetupLogger(level, logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := closeLog(); err != nil {
			cmd.PrintErrf("Warning: failed to close log file: %v\n", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetOut(os.Stdout)
	rootCmd.AddCommand(runCmd)
}
