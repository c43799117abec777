package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/winget-autoupdate/internal/service/history"
)

var (
	// errorsOnly limits the history output to error entries.
	errorsOnly bool

	// historyCmd prints the journal of one day.
	historyCmd = &cobra.Command{
		Use:   "history [YYYY-MM-DD]",
		Short: "Print the upgrade journal of a day (today by default).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var day string
			if len(args) > 0 {
				day = args[0]
			}

			options := &history.Options{
				ConfigPath:   configPath,
				LogDirectory: logDirectory,
				Day:          day,
				ErrorsOnly:   errorsOnly,
				Output:       cmd.OutOrStdout(),
			}

			return history.Run(cmd.Context(), options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	historyCmd.Flags().BoolVarP(&errorsOnly, "errors", "e", false, "print only error entries")

	rootCmd.AddCommand(historyCmd)
}
