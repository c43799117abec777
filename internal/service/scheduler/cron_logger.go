package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/winget-autoupdate/internal/logger"
)

// cronLogger routes cron's own messages to the diagnostic logger.
// cron reports every wake-up at info level, so unless debug logging is on
// only its warnings and errors get through.
type cronLogger struct {
	log *zap.SugaredLogger
}

var _ cron.Logger = (*cronLogger)(nil)

func newCronLogger(ctx context.Context) *cronLogger {
	log := logger.FromContext(ctx).Named("cron")
	if logger.Level() > zapcore.DebugLevel {
		log = log.WithOptions(logger.WithLevel(zapcore.WarnLevel))
	}

	return &cronLogger{log: log}
}

// Info implements cron.Logger.
func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Infow(msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
