package log

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const envLogLevel = "DVSCONV_LOG_LEVEL"

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true})
	l.SetOutput(os.Stderr)
	l.SetLevel(parseLevel(os.Getenv(envLogLevel)))
	return l
}

// unknown or empty levels fall back to info
func parseLevel(level string) logrus.Level {
	lv, err := logrus.ParseLevel(level)
	if err != nil || lv > logrus.DebugLevel || lv < logrus.ErrorLevel {
		return logrus.InfoLevel
	}
	return lv
}

type fieldsKey struct{}

/**
 * WithFields returns a copy of ctx whose log lines carry fields in addition
 * to the ones already attached. Later values win on key collisions.
 */
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	merged := logrus.Fields{}
	for k, v := range contextFields(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func contextFields(ctx context.Context) logrus.Fields {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).(logrus.Fields)
	return f
}

func entry(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	e := logrus.NewEntry(logger)
	if ctx != nil {
		e = e.WithContext(ctx)
	}
	return e.WithFields(contextFields(ctx)).WithFields(fields)
}

func Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	entry(ctx, fields).Debug(msg)
}

func Info(ctx context.Context, msg string, fields map[string]interface{}) {
	entry(ctx, fields).Info(msg)
}

func Warning(ctx context.Context, msg string, fields map[string]interface{}) {
	entry(ctx, fields).Warning(msg)
}

// SetLevel accepts debug, info, warn/warning and error.
func SetLevel(level string) {
	logger.SetLevel(parseLevel(level))
}

func SetLogWriter(w io.Writer) {
	logger.SetOutput(w)
}
