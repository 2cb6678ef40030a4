package main

import (
	"fmt"
	"os"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logger"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

// cfg is loaded once before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lendctl",
	Short: "lendctl - operate the lending engine from the command line",
	Long: `lendctl previews amortization schedules, computes late penalties,
prepares the database and simulates a full loan lifecycle against an
in-memory ledger.

Configuration is read from the environment and an optional .env file,
the same way the server and scheduler read it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logCfg := cfg.GetLoggerConfig()
		if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
			logCfg.Level = "warn"
		}
		logCfg.Format = "console"
		logCfg.Output = "stderr"
		return logger.Setup(logCfg)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("lendctl")
		log.Error().Err(err).Msg("command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at the configured level instead of warnings only")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
}
