package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultApplicationConfig(), config)
	assert.Equal(t, uint32(60), config.TargetFPS)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, config.Renderer.ClearColor)
}

func TestLoadApplicationConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
name = "triangle"
log_level = "debug"
start_width = 640

[renderer]
validation = true
clear_color = [0.1, 0.2, 0.3, 1.0]
`)
	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "triangle", config.Name)
	assert.Equal(t, core.DebugLevel, config.LogLevel)
	assert.Equal(t, uint32(640), config.StartWidth)
	assert.Equal(t, uint32(720), config.StartHeight)
	assert.True(t, config.Renderer.Validation)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1.0}, config.Renderer.ClearColor)
	assert.Equal(t, uint64(1000), config.Renderer.AcquireTimeoutMS)
}

func TestLoadApplicationConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown log level", `log_level = "chatty"`},
		{"unknown key", `colour = "red"`},
		{"no area", `start_height = 0`},
		{"no fps", `target_fps = 0`},
		{"no assets", `assets_dir = ""`},
		{"syntax", `name = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadApplicationConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestBackendConfig(t *testing.T) {
	config := DefaultApplicationConfig()
	config.Renderer.Validation = true

	bc := config.backendConfig()
	assert.Equal(t, "Hello Triangle", bc.ApplicationName)
	assert.True(t, bc.Validation)
	assert.Equal(t, metadata.PixelFormatBGRA8Unorm, bc.ColorPixelFormat)
	assert.Equal(t, metadata.DefaultMaxFramesInFlight, bc.MaxFramesInFlight)
}
