package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/logger"
)

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	h := logger.NewPrettyHandler(&buf, nil)
	l := slog.New(h.WithAttrs([]slog.Attr{slog.String("module", "UI")}).WithGroup("cache"))

	l.Info("dropped", "kind", "markup")

	assert.Equal(t, "dropped cache.module=UI cache.kind=markup\n", buf.String())
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := logger.NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_LevelVarIsLive(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var (
		buf   bytes.Buffer
		level slog.LevelVar
	)
	level.Set(slog.LevelInfo)
	l := slog.New(logger.NewPrettyHandler(&buf, &slog.HandlerOptions{Level: &level}))

	l.Debug("hidden")
	require.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	l.Debug("shown")
	assert.Equal(t, "● shown\n", buf.String())
}
