package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_TextLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "debug")
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=dbg", "a=1",
		"level=INFO", "msg=inf", "b=2",
		"level=WARN", "msg=wrn", "c=3",
		"level=ERROR", "msg=err", "d=4",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "warn")

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_JSONWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info").With("module", "notifier")

	log.Info(context.Background(), "published", "issue_id", "i1")

	out := buf.String()
	assert.Contains(t, out, `"module":"notifier"`)
	assert.Contains(t, out, `"issue_id":"i1"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewNop_DoesNotPanic(t *testing.T) {
	log := NewNop()
	log.With("k", "v").Error(context.TODO(), "ignored")
}
