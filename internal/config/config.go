package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the package-manager upgrade.
type Config struct {
	// LogDirectory is the folder that receives one journal file per day.
	LogDirectory string `yaml:"log_directory" validate:"required"`
	// PackageManager is the executable name or path of the package manager CLI.
	PackageManager string `yaml:"package_manager" validate:"required"`
	// UpgradeArgs are passed to the package manager to upgrade everything silently.
	UpgradeArgs []string `yaml:"upgrade_args" validate:"required,min=1,dive,required"`
	// VersionArgs are passed to the package manager to report its version.
	VersionArgs []string `yaml:"version_args" validate:"dive,required"`
	// UpgradeTimeout bounds the upgrade invocation; zero means no limit.
	UpgradeTimeout time.Duration `yaml:"upgrade_timeout" validate:"gte=0"`
	// Schedule is the cron expression used by the schedule command.
	Schedule string `yaml:"schedule,omitempty"`
	// LogLevel is the diagnostic logger level (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

const (
	// DefaultConfigFilename is the default filename for the updater settings.
	DefaultConfigFilename = "winget-autoupdate.yaml"

	// DefaultLogDirectory is resolved against the executable directory when relative.
	DefaultLogDirectory = "logs"

	// DefaultPackageManager is the Windows Package Manager CLI.
	DefaultPackageManager = "winget"

	// DefaultSchedule runs the upgrade every day at 03:00.
	DefaultSchedule = "0 3 * * *"

	// DefaultLogLevel is the diagnostic logger level used when none is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultUpgradeArgs upgrades all packages, accepts agreements and suppresses installer UI.
func DefaultUpgradeArgs() []string {
	return []string{
		"upgrade",
		"--all",
		"--accept-source-agreements",
		"--accept-package-agreements",
		"--silent",
	}
}

// DefaultVersionArgs asks the package manager for its version.
func DefaultVersionArgs() []string {
	return []string{"--version"}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")

	//nolint:gochecknoglobals // Validator caches struct metadata and is safe for concurrent use.
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogDirectory:   DefaultLogDirectory,
		PackageManager: DefaultPackageManager,
		UpgradeArgs:    DefaultUpgradeArgs(),
		VersionArgs:    DefaultVersionArgs(),
		Schedule:       DefaultSchedule,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads configuration from the provided path and validates it.
// Fields absent from the file keep their default values; a missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if cfg.Schedule == "" {
		return nil
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	return nil
}

// Clone returns a copy of the settings that shares no slices with the original.
func (c *Config) Clone() *Config {
	cloned := *c
	cloned.UpgradeArgs = slices.Clone(c.UpgradeArgs)
	cloned.VersionArgs = slices.Clone(c.VersionArgs)

	return &cloned
}

// ResolvePath makes a relative path absolute against base.
// Scheduled tasks start in an unrelated working directory, so base is usually
// the directory of the running executable.
func ResolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}

// Locate returns the settings file that Load should read. An empty path means
// DefaultConfigFilename and a relative path is taken next to the executable,
// the same way as a relative log directory.
func Locate(path string) string {
	if path == "" {
		path = DefaultConfigFilename
	}

	return ResolvePath(ExecutableDir(), path)
}

// ExecutableDir returns the directory of the running executable, or "" if it is unknown.
func ExecutableDir() string {
	executable, err := os.Executable()
	if err != nil {
		return ""
	}

	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	return filepath.Dir(executable)
}
