package journal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/winget-autoupdate/internal/domain/update"
)

const (
	// DefaultDirectoryPermissions is applied to log directories created by Open.
	DefaultDirectoryPermissions = 0o755
	// DefaultFilePermissions is applied to journal files created by Open.
	DefaultFilePermissions = 0o644
)

var (
	// ErrCreateDirectory is returned when the log directory cannot be created.
	ErrCreateDirectory = errors.New("create log directory")
	// ErrNoJournal is returned when no journal exists for the requested day.
	ErrNoJournal = errors.New("journal not found")
)

// Journal appends entries to the file of the day it was opened on.
type Journal struct {
	// path is the location of the daily journal file.
	path string
	// file is the journal file opened for appending.
	file *os.File
	// log encodes entries and fans them out to the file and the console.
	log *zap.Logger
}

// Option configures a Journal.
type Option func(*options)

type options struct {
	clock   zapcore.Clock
	console zapcore.WriteSyncer
}

// WithClock sets the clock used for the day of the file and entry timestamps.
func WithClock(clock zapcore.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithConsole sets where entries are mirrored; nil disables mirroring.
func WithConsole(console zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.console = console
	}
}

// Open creates the directory when needed and opens today's journal for appending.
func Open(directory string, opts ...Option) (*Journal, error) {
	o := &options{
		clock:   zapcore.DefaultClock,
		console: zapcore.Lock(os.Stdout),
	}

	for _, opt := range opts {
		opt(o)
	}

	if err := os.MkdirAll(directory, DefaultDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCreateDirectory, directory, err)
	}

	path := Path(directory, o.clock.Now())

	//nolint:gosec // The path is built from configuration, not user input.
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(), zapcore.AddSync(file), zapcore.DebugLevel),
	}

	if o.console != nil {
		cores = append(cores, zapcore.NewCore(newEncoder(), o.console, zapcore.DebugLevel))
	}

	return &Journal{
		path: path,
		file: file,
		log:  zap.New(zapcore.NewTee(cores...), zap.WithClock(o.clock)),
	}, nil
}

// Path returns the journal file location for the day of t.
func Path(directory string, t time.Time) string {
	return filepath.Join(directory, update.DailyFilename(t))
}

// Path returns the location of the opened journal file.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one entry. A multi-line message becomes one entry per
// non-empty line so that every line of the file keeps the entry format.
func (j *Journal) Append(message string) {
	if !strings.ContainsAny(message, "\r\n") {
		j.log.Info(message)
		return
	}

	for line := range strings.FieldsFuncSeq(message, isLineBreak) {
		j.log.Info(line)
	}
}

// Appendf writes one formatted entry.
func (j *Journal) Appendf(format string, args ...any) {
	j.Append(fmt.Sprintf(format, args...))
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	if j == nil || j.file == nil {
		return nil
	}

	// Syncing the console fails for terminals and pipes on some platforms; the file is what matters.
	_ = j.log.Sync()

	if err := j.file.Close(); err != nil {
		return fmt.Errorf("close journal %s: %w", j.path, err)
	}

	j.file = nil

	return nil
}

// ReadDay returns the entries of the journal for the day of t, in file order.
func ReadDay(directory string, t time.Time) ([]update.Entry, error) {
	path := Path(directory, t)

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoJournal)
		}

		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	var (
		entries []update.Entry
		scanner = bufio.NewScanner(file)
	)

	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}

		entry, err := update.ParseEntry(scanner.Text())
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal %s: %w", path, err)
	}

	return entries, nil
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}

// newEncoder renders "<timestamp> - <message>" and nothing else.
//
//nolint:ireturn // zapcore.Encoder is the type zap cores consume.
func newEncoder() zapcore.Encoder {
	//nolint:exhaustruct // Only the time and message are part of the journal format.
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "message",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(update.TimestampLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: update.Separator,
	})
}
