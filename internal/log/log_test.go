package log

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetLogWriter(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLogWriter(os.Stderr)
		SetLevel("info")
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := captureLogs(t, "warn")
	ctx := context.Background()

	Info(ctx, "hidden", nil)
	Warning(ctx, "count mismatch", map[string]interface{}{KeyChunk: 3})
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "count mismatch")
	assert.Contains(t, buf.String(), "chunk=3")

	buf.Reset()
	SetLevel("debug")
	Debug(ctx, "torn tail", map[string]interface{}{KeyOffset: 12})
	assert.Contains(t, buf.String(), "torn tail")
	assert.Contains(t, buf.String(), "offset=12")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{in: "debug", want: logrus.DebugLevel},
		{in: "INFO", want: logrus.InfoLevel},
		{in: "warn", want: logrus.WarnLevel},
		{in: "warning", want: logrus.WarnLevel},
		{in: "error", want: logrus.ErrorLevel},
		{in: "", want: logrus.InfoLevel},
		{in: "trace", want: logrus.InfoLevel},
		{in: "panic", want: logrus.InfoLevel},
		{in: "loud", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestWithFields(t *testing.T) {
	buf := captureLogs(t, "info")

	ctx := WithFields(context.Background(), map[string]interface{}{KeyPath: "events.dat", KeyChunk: 1})
	ctx = WithFields(ctx, map[string]interface{}{KeyChunk: 2})

	Info(ctx, "decoded", map[string]interface{}{KeyRecords: 25})
	out := buf.String()
	assert.Contains(t, out, "path=events.dat")
	assert.Contains(t, out, "chunk=2")
	assert.NotContains(t, out, "chunk=1")
	assert.Contains(t, out, "records=25")

	buf.Reset()
	Info(context.Background(), "plain", nil)
	assert.NotContains(t, buf.String(), "path=")
}

func TestNilContext(t *testing.T) {
	buf := captureLogs(t, "info")

	Info(nil, "no context", map[string]interface{}{KeyLine: 7})
	assert.Contains(t, buf.String(), "line=7")
}
