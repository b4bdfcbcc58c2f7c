package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := New("", false)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = New("debug", false)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New("", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
	assert.NotNil(t, Must("loud", false))
}

func TestMust_FallsBackToNop(t *testing.T) {
	log := Must("loud", false)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel), "bad level yields a no-op logger")
	assert.True(t, Must("info", false).Core().Enabled(zapcore.InfoLevel))
}
