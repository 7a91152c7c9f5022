package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shellbridge/shellbridge/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relayctl",
		Short: "shellbridge - resilient shell invocation diagnostics",
		Long: `relayctl exercises the shellbridge library from the command line.

It resolves the local PowerShell interpreter, runs single operations
through the bridge with classified retries and circuit breaking, and
classifies raw error text the same way the retry executor does.

The heavy lifting lives in the library; this binary exists for probing
environments and reproducing failures outside a calling application.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newInvokeCommand())
	rootCmd.AddCommand(newClassifyCommand())

	return rootCmd
}

// loadSettings returns the settings from --config, or the defaults when no
// file was given, and applies the configured log level and format.
func loadSettings() (*config.Settings, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyLogging(settings.Logging)
	return settings, nil
}

// applyLogging reconfigures the global logger from settings. The --verbose
// flag still wins over the configured level.
func applyLogging(cfg config.LoggingSettings) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if verbose {
		return
	}
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
}
