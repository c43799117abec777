package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/winget-autoupdate/internal/config"
	"github.com/oshokin/winget-autoupdate/internal/logger"
)

var (
	// force allows init to overwrite an existing configuration file.
	force bool

	// errConfigExists is returned when init would overwrite a configuration file.
	errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

	// initCmd writes the default configuration.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default settings.",
		Args:  cobra.NoArgs,
		// The configuration may not exist yet, so the shared pre-run must not read it.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.Locate(configPath)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s: %w", path, errConfigExists)
			}

			cfg := config.Default()
			if logDirectory != "" {
				cfg.LogDirectory = logDirectory
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}

			logger.InfoKV(cmd.Context(), "Configuration written", "path", path)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")

	rootCmd.AddCommand(initCmd)
}
