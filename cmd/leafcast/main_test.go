package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-leafcast/internal/config"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

func TestParseColor(t *testing.T) {
	for in, want := range map[string]panel.Color{
		"#ff8000":   {R: 255, G: 128},
		"00ff00":    {G: 255},
		"1, 2, 3":   {R: 1, G: 2, B: 3},
		"255,255,0": {R: 255, G: 255},
	} {
		got, err := parseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"1,2", "300,0,0", "#zzz", "a,b,c"} {
		_, err := parseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "leafcast.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("fps: 12\nviewport:\n  w: 320\n  h: 240\n"), 0o644))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("NANOLEAF_IP=10.0.0.9\nNANOLEAF_TOKEN=abc\n"), 0o644))
	t.Setenv(config.EnvHost, "")
	t.Setenv(config.EnvToken, "")
	os.Unsetenv(config.EnvHost)
	os.Unsetenv(config.EnvToken)

	c := &common{configPath: cfgPath, envPath: envPath, transition: -1, gap: -1, width: 400}
	cfg, err := loadConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", cfg.Device.Host)
	assert.Equal(t, 12, cfg.FPS)
	assert.Equal(t, 400, cfg.Viewport.W, "flags win over the file")
	assert.Equal(t, 240, cfg.Viewport.H)
	assert.Equal(t, 2, cfg.Transition)
}

func TestLoadConfigMissingDevice(t *testing.T) {
	t.Setenv(config.EnvHost, "")
	t.Setenv(config.EnvToken, "")
	c := &common{configPath: filepath.Join(t.TempDir(), "none.yaml"), transition: -1, gap: -1}
	_, err := loadConfig(c)
	var ce *config.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "device.host", ce.Field)

	c.sim = true
	cfg, err := loadConfig(c)
	require.NoError(t, err)
	assert.True(t, cfg.Sim)
}
