package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/winget-autoupdate/internal/logger"
	"github.com/oshokin/winget-autoupdate/internal/service/upgrader"
)

// Options controls the scheduler process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogDirectory overrides the log directory from the settings.
	LogDirectory string
	// Schedule overrides the cron expression from the settings.
	Schedule string
	// RunImmediately starts one upgrade as soon as the scheduler is up.
	RunImmediately bool
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// errScheduleRequired is returned when neither the flag nor the settings provide a schedule.
var errScheduleRequired = errors.New("schedule must be provided")

// Run starts the scheduler and blocks until the context is canceled.
// An upgrade in progress is allowed to finish before Run returns.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "scheduler")

	cfg, err := upgrader.LoadConfig(&upgrader.Options{
		ConfigPath:   opts.ConfigPath,
		LogDirectory: opts.LogDirectory,
	})
	if err != nil {
		return err
	}

	schedule := cfg.Schedule
	if opts.Schedule != "" {
		schedule = opts.Schedule
	}

	job := func(ctx context.Context) error {
		return upgrader.New(cfg).Run(ctx)
	}

	return Serve(ctx, schedule, job, opts.RunImmediately)
}

// Serve runs job on schedule until the context is canceled.
// A tick that arrives while the previous run is still going is skipped.
func Serve(ctx context.Context, schedule string, job Job, runImmediately bool) error {
	if schedule == "" {
		return errScheduleRequired
	}

	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	cronLogger := newCronLogger(ctx)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	)

	entryID := c.Schedule(spec, newJob(ctx, job))

	c.Start()

	logger.InfoKV(ctx, "Scheduler started", "schedule", schedule, "next_run", spec.Next(time.Now()))

	var immediate sync.WaitGroup

	if runImmediately {
		// The entry's wrapped job carries the skip-if-running guard.
		immediate.Go(c.Entry(entryID).WrappedJob.Run)
	}

	<-ctx.Done()

	logger.Info(ctx, "Stopping scheduler, waiting for a running upgrade to finish")
	<-c.Stop().Done()
	immediate.Wait()
	logger.Info(ctx, "Scheduler stopped")

	return nil
}

// newJob adapts a Job to cron, logging its outcome.
// The job gets a context detached from cancellation so that a shutdown
// does not kill the package manager in the middle of an installation.
func newJob(ctx context.Context, job Job) cron.FuncJob {
	return func() {
		runCtx := context.WithoutCancel(ctx)

		logger.Info(runCtx, "Scheduled upgrade started")

		if err := job(runCtx); err != nil {
			logger.ErrorKV(runCtx, "Scheduled upgrade failed", "error", err)
			return
		}

		logger.Info(runCtx, "Scheduled upgrade completed")
	}
}
