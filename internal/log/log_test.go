package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewModuleLoggerReturnsUsableLogger(t *testing.T) {
	l := NewModuleLogger(Scanner)
	assert.NotNil(t, l)
	l.Infow("test message", "k", "v")
}

func TestSetLevelDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		SetLevel(zapcore.DebugLevel)
		SetLevel(zapcore.InfoLevel)
	})
}
