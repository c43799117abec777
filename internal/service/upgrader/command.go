package upgrader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/winget-autoupdate/internal/config"
	"github.com/oshokin/winget-autoupdate/internal/domain/update"
	"github.com/oshokin/winget-autoupdate/internal/logger"
	"github.com/oshokin/winget-autoupdate/internal/repository/journal"
	"github.com/oshokin/winget-autoupdate/internal/service/common"
	"github.com/oshokin/winget-autoupdate/internal/version"
)

// versionQueryTimeout bounds the version query so a stuck package manager
// cannot hold the run before the upgrade starts.
const versionQueryTimeout = 30 * time.Second

var (
	// ErrPackageManagerNotFound is returned when the package manager is not on the system path.
	ErrPackageManagerNotFound = errors.New("package manager not found")
	// ErrInvocationFault is returned when the upgrade command could not be run to completion.
	ErrInvocationFault = errors.New("upgrade invocation failed")
)

// Options are inputs accepted by the upgrader entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// LogDirectory overrides the log directory from the settings.
	LogDirectory string
}

// Run loads the settings and performs one upgrade against the real system.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	return New(cfg).Run(ctx)
}

// LoadConfig reads the settings, applies overrides from opts and resolves
// relative settings and log directory paths against the executable directory.
func LoadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(config.Locate(opts.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.LogDirectory != "" {
		cfg.LogDirectory = opts.LogDirectory
	}

	cfg.LogDirectory = config.ResolvePath(config.ExecutableDir(), cfg.LogDirectory)

	return cfg, nil
}

// Orchestrator performs upgrade runs with injectable host capabilities.
type Orchestrator struct {
	// cfg holds the package manager invocation and the log directory.
	cfg *config.Config
	// runner resolves and starts the package manager.
	runner common.CommandRunner
	// environment reports the user and host for the started banner.
	environment common.Environment
	// processes counts package manager instances already running; nil skips the check.
	processes common.ProcessCounter
	// clock drives the journal date and entry timestamps.
	clock zapcore.Clock
	// console mirrors journal entries; nil disables mirroring.
	console zapcore.WriteSyncer
	// newRunID produces the identifier shown in the banners.
	newRunID func() string
	// versionTimeout bounds the version query.
	versionTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the command runner.
func WithRunner(runner common.CommandRunner) Option {
	return func(o *Orchestrator) {
		o.runner = runner
	}
}

// WithEnvironment replaces the user and host detection.
func WithEnvironment(environment common.Environment) Option {
	return func(o *Orchestrator) {
		o.environment = environment
	}
}

// WithProcessCounter replaces the running process inspection; nil disables it.
func WithProcessCounter(processes common.ProcessCounter) Option {
	return func(o *Orchestrator) {
		o.processes = processes
	}
}

// WithClock replaces the clock of the journal.
func WithClock(clock zapcore.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithConsole replaces the journal mirror; nil disables it.
func WithConsole(console zapcore.WriteSyncer) Option {
	return func(o *Orchestrator) {
		o.console = console
	}
}

// WithRunID makes every run use the provided identifier.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.newRunID = func() string { return id }
	}
}

// New creates an orchestrator for the settings; host capabilities default to the real system.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg.Clone(),
		runner:      common.ExecRunner{},
		environment: common.SystemEnvironment{},
		processes:   common.SystemProcesses{},
		clock:       zapcore.DefaultClock,
		console:     zapcore.Lock(os.Stdout),
		newRunID:    uuid.NewString,

		versionTimeout: versionQueryTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run performs one upgrade:
// 1) Open today's journal, creating the log directory.
// 2) Journal who started the run.
// 3) Resolve the package manager on the system path.
// 4) Journal the package manager version.
// 5) Run the upgrade and journal each output line.
// 6) Journal completion.
func (o *Orchestrator) Run(ctx context.Context) error {
	runID := o.newRunID()
	ctx = logger.WithKV(logger.WithName(ctx, "upgrader"), "run_id", runID)

	j, err := journal.Open(o.cfg.LogDirectory, journal.WithClock(o.clock), journal.WithConsole(o.console))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Close journal failed", "error", closeErr)
		}
	}()

	logger.DebugKV(ctx, "Journal opened", "path", j.Path())

	actor, err := o.environment.Actor()
	if err != nil {
		logger.WarnKV(ctx, "Detect actor failed", "error", err)

		actor = update.UnknownActor()
	}

	j.Appendf("Starting %s upgrade by %s (run: %s, %s %s)",
		o.cfg.PackageManager, actor.String(), runID, version.Name, version.Short())

	executable, err := o.runner.LookPath(o.cfg.PackageManager)
	if err != nil {
		j.Appendf("ERROR: %s was not found on the system path", o.cfg.PackageManager)

		return fmt.Errorf("%w: %w", ErrPackageManagerNotFound, err)
	}

	logger.DebugKV(ctx, "Package manager resolved", "path", executable)

	o.journalVersion(ctx, j, executable)
	o.journalConcurrentInstances(ctx, j)

	j.Appendf("Running: %s %s", o.cfg.PackageManager, strings.Join(o.cfg.UpgradeArgs, " "))

	result, err := o.upgrade(ctx, executable)
	if err != nil {
		j.Appendf("ERROR: %s", err)

		return fmt.Errorf("%w: %w", ErrInvocationFault, err)
	}

	for _, line := range SplitOutput(result.Output) {
		j.Append(line)
	}

	j.Appendf("Command completed with exit code %d", result.ExitCode)

	if result.ExitCode != 0 {
		logger.WarnKV(ctx, "Package manager reported failures", "exit_code", result.ExitCode)
	}

	j.Appendf("Upgrade finished (run: %s)", runID)

	return nil
}

// upgrade runs the upgrade command, bounded by the configured timeout.
func (o *Orchestrator) upgrade(ctx context.Context, executable string) (*common.CommandResult, error) {
	if o.cfg.UpgradeTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, o.cfg.UpgradeTimeout)
		defer cancel()
	}

	return o.runner.Run(ctx, executable, o.cfg.UpgradeArgs...)
}

// journalVersion records the package manager version on a best-effort basis.
func (o *Orchestrator) journalVersion(ctx context.Context, j *journal.Journal, executable string) {
	ctx, cancel := context.WithTimeout(ctx, o.versionTimeout)
	defer cancel()

	result, err := o.runner.Run(ctx, executable, o.cfg.VersionArgs...)
	if err != nil {
		j.Appendf("Unable to query %s version: %s", o.cfg.PackageManager, err)

		return
	}

	lines := SplitOutput(result.Output)
	if len(lines) == 0 {
		j.Appendf("%s version: unknown (exit code %d)", o.cfg.PackageManager, result.ExitCode)

		return
	}

	for _, line := range lines {
		j.Appendf("%s version: %s", o.cfg.PackageManager, line)
	}
}

// journalConcurrentInstances notes package manager processes that are already running.
// Two package manager instances can contend for installers, so the upgrade may
// report failures; the run still goes ahead.
func (o *Orchestrator) journalConcurrentInstances(ctx context.Context, j *journal.Journal) {
	if o.processes == nil {
		return
	}

	count, err := o.processes.CountProcesses(o.cfg.PackageManager)
	if err != nil {
		logger.DebugKV(ctx, "Count running package manager processes failed", "error", err)

		return
	}

	if count > 0 {
		j.Appendf("Warning: %d %s process(es) already running", count, o.cfg.PackageManager)
	}
}
