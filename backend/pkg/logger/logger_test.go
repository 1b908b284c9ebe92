package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGet_BeforeInit(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	log := Get()
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestInit_Levels(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	require.NoError(t, Init("production"))
	assert.Equal(t, zapcore.InfoLevel, Level())
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("development"))
	assert.Equal(t, zapcore.DebugLevel, Level())
	assert.True(t, Named("test").Core().Enabled(zapcore.DebugLevel))
}

func TestSetLevel(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()
	require.NoError(t, Init("development"))

	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, zapcore.WarnLevel, Level())
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))

	require.NoError(t, SetLevel(""))
	assert.Equal(t, zapcore.WarnLevel, Level())

	assert.Error(t, SetLevel("chatty"))
	assert.Equal(t, zapcore.WarnLevel, Level())
}
