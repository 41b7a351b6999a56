package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
)

func TestRollbarLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	conf := &core.Config{Env: "TEST", Build: "test"}
	logger := NewRollbarLogger(zap.New(obs), conf)
	logger.Enable(false)

	usr := session.User{UserID: "7", Email: "a@b.com", FirstName: "Ada"}
	logger.Warn("google callback: parsing callback identity", errors.New("bad json"), map[string]interface{}{"provider": "google"}, usr)
	logger.Info("started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	warn := entries[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "google callback: parsing callback identity", warn.Message)
	fields := warn.ContextMap()
	assert.Equal(t, "bad json", fields["error"])
	assert.Equal(t, "google", fields["provider"])
	assert.Equal(t, "7", fields["userId"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].ContextMap())
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, levelFromString(in), "levelFromString(%q)", in)
	}
}

func TestNewZapLogger(t *testing.T) {
	conf := new(core.Config)
	conf.Log.Level = "debug"
	conf.Log.Encoding = "console"

	zl, err := NewZapLogger(conf)
	require.NoError(t, err)
	assert.True(t, zl.Core().Enabled(zapcore.DebugLevel))
}
