package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/timectrl"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, core.DefaultLayoutParams(), cfg.LayoutParams())
	assert.Equal(t, timectrl.RealTime, cfg.TickMode())
	assert.False(t, cfg.TracingConfig().Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COMMNET_LISTEN_ADDRESS", "127.0.0.1:7000")
	t.Setenv("COMMNET_LOG_LEVEL", "DEBUG")
	t.Setenv("COMMNET_LAYOUT_TICK_INTERVAL", "5ms")
	t.Setenv("COMMNET_LAYOUT_MODE", "accelerated")
	t.Setenv("COMMNET_TRACING_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Millisecond, cfg.Layout.TickInterval)
	assert.Equal(t, timectrl.Accelerated, cfg.TickMode())
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commnet.yaml")
	body := `
listen_address: ":6000"
scenario_path: /data/exercise.json
log:
  format: json
layout:
  width: 1024
  height: 768
  max_ticks: 250
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.ListenAddress)
	assert.Equal(t, "/data/exercise.json", cfg.ScenarioPath)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 1024.0, cfg.Layout.Width)
	assert.Equal(t, 250, cfg.LayoutParams().MaxTicks)
	assert.Equal(t, 40.0, cfg.Layout.Padding)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("COMMNET_LAYOUT_MAX_TICKS", "0")
	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)

	t.Setenv("COMMNET_LAYOUT_MAX_TICKS", "10")
	t.Setenv("COMMNET_LAYOUT_PADDING", "500")
	_, err = Load("")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
