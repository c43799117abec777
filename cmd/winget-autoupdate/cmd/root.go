package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/winget-autoupdate/internal/config"
	"github.com/oshokin/winget-autoupdate/internal/logger"
	"github.com/oshokin/winget-autoupdate/internal/service/upgrader"
	"github.com/oshokin/winget-autoupdate/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logDirectory overrides the journal directory from the configuration.
	logDirectory string
	// logLevel overrides the diagnostic log level from the configuration.
	logLevel string

	// rootCmd represents the base command for a single unattended upgrade.
	rootCmd = &cobra.Command{
		Use:   version.Name,
		Short: "Upgrade all installed packages with winget and journal the output.",
		Long: `Runs "winget upgrade --all" unattended and appends every line of its output
to a daily journal file (<log directory>/YYYY-MM-DD.log).

Intended to be started by Task Scheduler without arguments. The exit status is 0
when the upgrade ran, even if some packages failed to upgrade, and 1 when the
journal directory cannot be created, winget is not installed or the upgrade
could not be started.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogger,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &upgrader.Options{
				ConfigPath:   configPath,
				LogDirectory: logDirectory,
			}

			return upgrader.Run(ctx, options)
		},
	}
)

// Execute runs the winget-autoupdate CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.ExecuteContext(context.Background())

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

// setupLogger applies the diagnostic log level from the flag or the configuration.
func setupLogger(_ *cobra.Command, _ []string) error {
	level := logLevel
	if level == "" {
		cfg, err := config.Load(config.Locate(configPath))
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		level = cfg.LogLevel
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&logDirectory, "log-dir", "l", "", "directory for daily journal files (overrides configuration)")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "diagnostic log level: debug, info, warn or error")
}
