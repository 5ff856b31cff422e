package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}).WithoutColors())
}

func TestPrettyHandlerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, slog.LevelInfo)

	log.With("component", "session").WithGroup("attempt").Info("login attempt finished", "state", "approved")

	out := buf.String()
	assert.Contains(t, out, "INFO  login attempt finished")
	assert.Contains(t, out, " component=session")
	assert.Contains(t, out, " attempt.state=approved")
	assert.NotContains(t, out, "\033[")
}

func TestPrettyHandlerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, slog.LevelInfo)

	log.Info("debug dump", "access_token", "eyJhbGciOi", "password", "hunter2", "email", "a@b.c")

	out := buf.String()
	assert.NotContains(t, out, "eyJhbGciOi")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "access_token=[redacted]")
	assert.Contains(t, out, "email=a@b.c")
}

func TestPrettyHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN  shown")
}

func TestPrettyHandlerGroupsOnlyLaterAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, slog.LevelInfo)

	log.With("component", "session").
		WithGroup("attempt").With("email", "a@b.c").
		WithGroup("retry").Info("refreshed", "count", 1)

	out := buf.String()
	assert.Contains(t, out, " component=session")
	assert.NotContains(t, out, "attempt.component")
	assert.Contains(t, out, " attempt.email=a@b.c")
	assert.Contains(t, out, " attempt.retry.count=1")
}
