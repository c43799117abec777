package history

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oshokin/winget-autoupdate/internal/domain/update"
	"github.com/oshokin/winget-autoupdate/internal/logger"
	"github.com/oshokin/winget-autoupdate/internal/repository/journal"
	"github.com/oshokin/winget-autoupdate/internal/service/upgrader"
)

// errorPrefix marks entries the upgrader writes for orchestration failures.
const errorPrefix = "ERROR"

// Options controls which journal is printed and how.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogDirectory overrides the log directory from the settings.
	LogDirectory string
	// Day selects the journal as "YYYY-MM-DD"; empty means today.
	Day string
	// ErrorsOnly limits the output to error entries.
	ErrorsOnly bool
	// Output receives the entries.
	Output io.Writer
}

// Run prints the entries of the selected day.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "history")

	cfg, err := upgrader.LoadConfig(&upgrader.Options{
		ConfigPath:   opts.ConfigPath,
		LogDirectory: opts.LogDirectory,
	})
	if err != nil {
		return err
	}

	day := time.Now()
	if opts.Day != "" {
		if day, err = update.ParseDay(opts.Day); err != nil {
			return err
		}
	}

	logger.DebugKV(ctx, "Reading journal", "path", journal.Path(cfg.LogDirectory, day))

	entries, err := journal.ReadDay(cfg.LogDirectory, day)
	if err != nil {
		return err
	}

	return Print(opts.Output, Filter(entries, opts.ErrorsOnly))
}

// Filter returns the entries to print, keeping only errors when errorsOnly is set.
func Filter(entries []update.Entry, errorsOnly bool) []update.Entry {
	if !errorsOnly {
		return entries
	}

	result := make([]update.Entry, 0, len(entries))

	for _, entry := range entries {
		if strings.HasPrefix(entry.Message, errorPrefix) {
			result = append(result, entry)
		}
	}

	return result
}

// Print writes one entry per line in the journal format.
func Print(w io.Writer, entries []update.Entry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintln(w, entry.String()); err != nil {
			return fmt.Errorf("print entry: %w", err)
		}
	}

	return nil
}
