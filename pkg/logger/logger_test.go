package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bantudesa/pkg/config"
)

func TestNewReplacesGlobal(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(ConfigParams{Cfg: &config.Config{AppEnv: "production", AppName: "bantudesa", NodeID: 3}})
	require.NoError(t, err)
	require.Same(t, log, zap.L())
	require.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNewDevelopmentLogsDebug(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(ConfigParams{Cfg: &config.Config{AppEnv: "development"}})
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(ConfigParams{})
	require.Error(t, err)
}
