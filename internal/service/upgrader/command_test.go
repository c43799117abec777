package upgrader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/winget-autoupdate/internal/config"
	"github.com/oshokin/winget-autoupdate/internal/domain/update"
	"github.com/oshokin/winget-autoupdate/internal/repository/journal"
	"github.com/oshokin/winget-autoupdate/internal/service/common"
)

var (
	errTestNotFound = errors.New(`exec: "winget": executable file not found in %PATH%`)
	errTestLaunch   = errors.New("fork/exec winget.exe: the system cannot find the file specified")
	errTestHostname = errors.New("hostname unavailable")
	errTestVersion  = errors.New("version query crashed")
)

// fakeRunner is a scripted CommandRunner that records invocations.
type fakeRunner struct {
	// lookPathErr is returned from LookPath when set.
	lookPathErr error
	// version is returned for the version query.
	version *common.CommandResult
	// versionErr is returned for the version query when set.
	versionErr error
	// blockVersion makes the version query wait for the context to end.
	blockVersion bool
	// upgrade is returned for the upgrade invocation.
	upgrade *common.CommandResult
	// upgradeErr is returned for the upgrade invocation when set.
	upgradeErr error
	// blockUntilDone makes the upgrade wait for the context to end.
	blockUntilDone bool

	// lookups records LookPath calls.
	lookups []string
	// calls records Run arguments.
	calls [][]string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	f.lookups = append(f.lookups, name)

	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}

	return filepath.Join("fake-bin", name+".exe"), nil
}

func (f *fakeRunner) Run(ctx context.Context, _ string, args ...string) (*common.CommandResult, error) {
	f.calls = append(f.calls, args)

	if slices.Equal(args, config.DefaultVersionArgs()) {
		if f.blockVersion {
			<-ctx.Done()

			return nil, ctx.Err()
		}

		return f.version, f.versionErr
	}

	if f.blockUntilDone {
		<-ctx.Done()

		return &common.CommandResult{ExitCode: -1}, ctx.Err()
	}

	return f.upgrade, f.upgradeErr
}

func (f *fakeRunner) upgradeCalls() int {
	count := 0

	for _, args := range f.calls {
		if slices.Equal(args, config.DefaultUpgradeArgs()) {
			count++
		}
	}

	return count
}

// fakeEnvironment returns a fixed actor.
type fakeEnvironment struct {
	actor *update.Actor
	err   error
}

func (f fakeEnvironment) Actor() (*update.Actor, error) {
	if f.err != nil {
		return nil, f.err
	}

	if f.actor != nil {
		return f.actor, nil
	}

	return &update.Actor{Hostname: "WORKSTATION-01", Username: `CORP\admin`}, nil
}

// fakeProcesses reports a fixed number of running package manager instances.
type fakeProcesses struct {
	count int
}

func (f fakeProcesses) CountProcesses(string) (int, error) {
	return f.count, nil
}

// stepClock is a zapcore.Clock that advances one second per reading.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	now := c.now
	c.now = c.now.Add(time.Second)

	return now
}

func (c *stepClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

func newRunDay() time.Time {
	return time.Date(2024, time.May, 1, 3, 0, 0, 0, time.Local)
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.LogDirectory = filepath.Join(t.TempDir(), "Logs", "WingetUpdate")

	return cfg
}

func newTestOrchestrator(cfg *config.Config, runner *fakeRunner, clock *stepClock, opts ...Option) *Orchestrator {
	defaults := []Option{
		WithRunner(runner),
		WithEnvironment(fakeEnvironment{}),
		WithProcessCounter(fakeProcesses{}),
		WithClock(clock),
		WithConsole(nil),
		WithRunID("test-run"),
	}

	return New(cfg, append(defaults, opts...)...)
}

func messages(entries []update.Entry) []string {
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Message)
	}

	return result
}

func successfulRunner() *fakeRunner {
	return &fakeRunner{
		version: &common.CommandResult{Output: "v1.7.10861\r\n"},
		upgrade: &common.CommandResult{
			Output: "Name   Id       Version Available\r\n" +
				"Git    Git.Git  2.44.0  2.45.0\r\n" +
				"\r\n" +
				"  -\r  \\\r  |\r  Successfully installed\r\n" +
				"Installer failed with exit code: 1603\r\n",
			ExitCode: 0,
		},
	}
}

// TestRun_JournalsEveryLineInOrder verifies the full journal of a successful run.
func TestRun_JournalsEveryLineInOrder(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := successfulRunner()
	clock := &stepClock{now: newRunDay()}

	err := newTestOrchestrator(cfg, runner, clock).Run(context.Background())
	require.NoError(t, err)

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)

	got := messages(entries)
	require.True(t, strings.HasPrefix(got[0], "Starting winget upgrade by CORP\\admin@WORKSTATION-01 (run: test-run"))
	require.Equal(t, []string{
		"winget version: v1.7.10861",
		"Running: winget upgrade --all --accept-source-agreements --accept-package-agreements --silent",
		"Name   Id       Version Available",
		"Git    Git.Git  2.44.0  2.45.0",
		"  Successfully installed",
		"Installer failed with exit code: 1603",
		"Command completed with exit code 0",
		"Upgrade finished (run: test-run)",
	}, got[1:])

	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}

	require.Equal(t, 1, runner.upgradeCalls())
}

// TestRun_NonZeroExitCodeIsNotAFailure keeps tool-reported errors informational.
func TestRun_NonZeroExitCodeIsNotAFailure(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := successfulRunner()
	runner.upgrade = &common.CommandResult{
		Output:   "No installed package found matching input criteria.",
		ExitCode: -1978335212,
	}

	err := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background())
	require.NoError(t, err)

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)
	require.Contains(t, messages(entries), "No installed package found matching input criteria.")
	require.Contains(t, messages(entries), "Command completed with exit code -1978335212")
}

// TestRun_PackageManagerMissing asserts that no upgrade is attempted without the package manager.
func TestRun_PackageManagerMissing(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := &fakeRunner{lookPathErr: errTestNotFound}

	err := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background())
	require.ErrorIs(t, err, ErrPackageManagerNotFound)
	require.ErrorIs(t, err, errTestNotFound)
	require.Empty(t, runner.calls)

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "ERROR: winget was not found on the system path", entries[1].Message)
}

// TestRun_InvocationFault asserts that a failure to launch the upgrade fails the run and is journaled.
func TestRun_InvocationFault(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := successfulRunner()
	runner.upgrade = &common.CommandResult{ExitCode: -1}
	runner.upgradeErr = errTestLaunch

	err := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background())
	require.ErrorIs(t, err, ErrInvocationFault)
	require.ErrorIs(t, err, errTestLaunch)

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)

	got := messages(entries)
	require.Equal(t, "ERROR: "+errTestLaunch.Error(), got[len(got)-1])
	require.NotContains(t, got, "Upgrade finished (run: test-run)")
}

// TestRun_UpgradeTimeout treats an upgrade exceeding its time limit as an invocation fault.
func TestRun_UpgradeTimeout(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.UpgradeTimeout = 50 * time.Millisecond

	runner := successfulRunner()
	runner.blockUntilDone = true

	err := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background())
	require.ErrorIs(t, err, ErrInvocationFault)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestRun_LogDirectoryCreated verifies that a missing log root exists after the run.
func TestRun_LogDirectoryCreated(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)

	_, err := os.Stat(cfg.LogDirectory)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Even a failing run leaves the directory behind.
	runner := &fakeRunner{lookPathErr: errTestNotFound}
	require.Error(t, newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background()))

	info, err := os.Stat(cfg.LogDirectory)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

// TestRun_LogDirectoryFailure asserts that nothing runs when the log root cannot be created.
func TestRun_LogDirectoryFailure(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "not-a-directory")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	cfg := config.Default()
	cfg.LogDirectory = filepath.Join(blocker, "logs")
	runner := successfulRunner()

	err := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background())
	require.ErrorIs(t, err, journal.ErrCreateDirectory)
	require.Empty(t, runner.lookups)
	require.Empty(t, runner.calls)
}

// TestRun_SameDayAppends verifies that two runs on one date share the file without truncation.
func TestRun_SameDayAppends(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	clock := &stepClock{now: newRunDay()}

	require.NoError(t, newTestOrchestrator(cfg, successfulRunner(), clock, WithRunID("first")).Run(context.Background()))
	require.NoError(t, newTestOrchestrator(cfg, successfulRunner(), clock, WithRunID("second")).Run(context.Background()))

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)

	got := messages(entries)
	first := slices.Index(got, "Upgrade finished (run: first)")
	second := slices.Index(got, "Upgrade finished (run: second)")

	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)

	files, err := os.ReadDir(cfg.LogDirectory)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

// TestRun_MidnightStaysInStartDayFile keeps every entry of a run in the file of the day it started.
func TestRun_MidnightStaysInStartDayFile(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	start := time.Date(2024, time.May, 1, 23, 59, 58, 0, time.Local)

	require.NoError(t, newTestOrchestrator(cfg, successfulRunner(), &stepClock{now: start}).Run(context.Background()))

	files, err := os.ReadDir(cfg.LogDirectory)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "2024-05-01.log", files[0].Name())

	entries, err := journal.ReadDay(cfg.LogDirectory, start)
	require.NoError(t, err)
	require.Equal(t, "Upgrade finished (run: test-run)", entries[len(entries)-1].Message)
}

// TestRun_BestEffortDetails covers failures that must not fail the run.
func TestRun_BestEffortDetails(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := successfulRunner()
	runner.version = nil
	runner.versionErr = errTestVersion

	err := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()},
		WithEnvironment(fakeEnvironment{err: errTestHostname}),
		WithProcessCounter(fakeProcesses{count: 2}),
	).Run(context.Background())
	require.NoError(t, err)

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)

	got := messages(entries)
	require.True(t, strings.HasPrefix(got[0], "Starting winget upgrade by unknown@unknown (run: test-run"))
	require.Contains(t, got, "Unable to query winget version: "+errTestVersion.Error())
	require.Contains(t, got, "Warning: 2 winget process(es) already running")
	require.Equal(t, "Upgrade finished (run: test-run)", got[len(got)-1])
}

// TestRun_BlankActorNames substitutes "unknown" for names the system left blank.
func TestRun_BlankActorNames(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)

	err := newTestOrchestrator(cfg, successfulRunner(), &stepClock{now: newRunDay()},
		WithEnvironment(fakeEnvironment{actor: &update.Actor{Hostname: "WORKSTATION-01"}}),
	).Run(context.Background())
	require.NoError(t, err)

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(entries[0].Message, "Starting winget upgrade by unknown@WORKSTATION-01 (run: test-run"))
}

// TestRun_VersionQueryTimesOut keeps going when the version query hangs.
func TestRun_VersionQueryTimesOut(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := successfulRunner()
	runner.blockVersion = true

	o := newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()})
	o.versionTimeout = 50 * time.Millisecond

	require.NoError(t, o.Run(context.Background()))
	require.Equal(t, 1, runner.upgradeCalls())

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)
	require.Contains(t, messages(entries), "Unable to query winget version: "+context.DeadlineExceeded.Error())
}

// TestRun_VersionErrorOutputIsJournaled records the error output of a failing version query.
func TestRun_VersionErrorOutputIsJournaled(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	runner := successfulRunner()
	runner.version = &common.CommandResult{Output: "Failed to initialize\n", ExitCode: 1}

	require.NoError(t, newTestOrchestrator(cfg, runner, &stepClock{now: newRunDay()}).Run(context.Background()))

	entries, err := journal.ReadDay(cfg.LogDirectory, newRunDay())
	require.NoError(t, err)
	require.Contains(t, messages(entries), "winget version: Failed to initialize")
}

// TestNew_ClonesConfig ensures later edits of the caller's settings do not leak into the orchestrator.
func TestNew_ClonesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	o := New(cfg)
	cfg.UpgradeArgs[0] = "uninstall"

	require.Equal(t, "upgrade", o.cfg.UpgradeArgs[0])
}

// TestLoadConfig applies the log directory override.
func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadConfig(&Options{
		ConfigPath:   filepath.Join(dir, "absent.yaml"),
		LogDirectory: dir,
	})
	require.NoError(t, err)
	require.Equal(t, dir, cfg.LogDirectory)

	cfg, err = LoadConfig(&Options{ConfigPath: filepath.Join(dir, "absent.yaml")})
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(cfg.LogDirectory))
}

// TestLoadConfig_RelativePathNextToExecutable reads a relative settings path
// from the executable directory rather than the working directory.
func TestLoadConfig_RelativePathNextToExecutable(t *testing.T) {
	t.Parallel()

	name := "relative-" + strings.ReplaceAll(t.Name(), "/", "-") + ".yaml"
	path := filepath.Join(config.ExecutableDir(), name)

	saved := config.Default()
	saved.PackageManager = "scoop"
	require.NoError(t, config.Save(path, saved))
	t.Cleanup(func() { _ = os.Remove(path) })

	cfg, err := LoadConfig(&Options{ConfigPath: name})
	require.NoError(t, err)
	require.Equal(t, "scoop", cfg.PackageManager)
}
