package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmformation/formation-portal/pkg/config"
)

func TestNew_WritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "portal.log")
	cfg := &config.PortalConfig{LogLevel: "info", LogFile: logPath, LogJSON: true}

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("sync finished")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"sync finished"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&config.PortalConfig{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestAccessLogWriter(t *testing.T) {
	assert.Equal(t, os.Stdout, AccessLogWriter(&config.PortalConfig{}))

	w := AccessLogWriter(&config.PortalConfig{AccessLogFile: filepath.Join(t.TempDir(), "access.log")})
	assert.NotEqual(t, os.Stdout, w)
}

func TestSetLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "portal.log")
	logger, err := New(&config.PortalConfig{LogLevel: "warn", LogFile: logPath, LogJSON: true})
	require.NoError(t, err)

	logger.Info("before reload")
	require.NoError(t, SetLevel("debug"))
	logger.Debug("after reload")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "before reload")
	assert.Contains(t, string(data), "after reload")

	assert.Error(t, SetLevel("chatty"))
}
