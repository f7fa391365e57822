package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	logrus.FieldLogger
	WithContext(ctx context.Context) *logrus.Entry
}

type loggerCtxKey struct{}

type RootLogger struct {
	*logrus.Logger
}

func New() *RootLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return &RootLogger{logger}
}

func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// LoggerFromContext returns the logger stored by WithLogger, or a fresh
// standard logger if the context carries none.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerCtxKey{}).(Logger); ok {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
