package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/winget-autoupdate/internal/service/scheduler"
)

var (
	// schedule overrides the cron expression from the configuration.
	schedule string
	// runNow starts an upgrade as soon as the scheduler is up.
	runNow bool

	// scheduleCmd keeps the process alive and runs upgrades on a cron schedule.
	scheduleCmd = &cobra.Command{
		Use:   "schedule",
		Short: "Run upgrades periodically on a cron schedule.",
		Long: `Keeps running and starts an upgrade on the given cron schedule
(5-field expression such as "0 3 * * *", or a descriptor such as "@daily").

A tick that arrives while the previous upgrade is still running is skipped.
Stopping the process waits for a running upgrade to finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &scheduler.Options{
				ConfigPath:     configPath,
				LogDirectory:   logDirectory,
				Schedule:       schedule,
				RunImmediately: runNow,
			}

			return scheduler.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	scheduleCmd.Flags().StringVarP(&schedule, "schedule", "s", "", "cron expression (overrides configuration)")
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "run an upgrade immediately on start")

	rootCmd.AddCommand(scheduleCmd)
}
