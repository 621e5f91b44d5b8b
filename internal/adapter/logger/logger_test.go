package logger

import (
	"testing"

	"github.com/MikeRez0/storefront/internal/adapter/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(&config.App{LogLevel: "debug", Mode: config.AppModeDevelop})
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger(&config.App{LogLevel: "error", Mode: config.AppModeProduction})
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(&config.App{LogLevel: "loud"})
	assert.Error(t, err)
}
