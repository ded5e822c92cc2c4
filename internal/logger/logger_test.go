package logger

import (
	"bytes"
	"context"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewForTests()
		ctx := ContextWithLogger(context.Background(), expected)
		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("Should return default logger when no logger in context", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		assert.Equal(t, defaultLogger, l)
	})

	t.Run("Should return default logger when wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), ctxKey{}, "not a logger")
		assert.Equal(t, defaultLogger, FromContext(ctx))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	assert.Equal(t, charmlog.DebugLevel, DebugLevel.ToCharmlogLevel())
	assert.Equal(t, charmlog.InfoLevel, InfoLevel.ToCharmlogLevel())
	assert.Equal(t, charmlog.WarnLevel, WarnLevel.ToCharmlogLevel())
	assert.Equal(t, charmlog.ErrorLevel, ErrorLevel.ToCharmlogLevel())
	assert.Equal(t, charmlog.InfoLevel, LogLevel("loud").ToCharmlogLevel())
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write JSON lines with fields from With", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})
		l.With("pipeline", "wage-inflation").Info("run done", "rows", 12)

		out := buf.String()
		assert.Contains(t, out, `"msg":"run done"`)
		assert.Contains(t, out, `"pipeline":"wage-inflation"`)
		assert.Contains(t, out, `"rows":12`)
	})

	t.Run("Should drop messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: WarnLevel, Output: &buf})
		l.Debug("hidden")
		l.Info("hidden")
		assert.Empty(t, buf.String())

		l.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
