package log

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusLogger bọc logrus đằng sau interface Logger. Level lấy từ biến
// môi trường LOG_LEVEL, mặc định là info.
type LogrusLogger struct {
	log *logrus.Logger
}

func NewLogrusLogger() (*LogrusLogger, error) {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.999Z",
	})

	level := logrus.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := logrus.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	return &LogrusLogger{log: l}, nil
}

func (l *LogrusLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

func (l *LogrusLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.log.Warnf(format, args...)
}

func (l *LogrusLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l *LogrusLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
