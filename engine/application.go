package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "hellotriangle.toml"

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string        `toml:"name"`
	LogLevel core.LogLevel `toml:"log_level"`
	// Frames per second the loop aims for.
	TargetFPS uint32 `toml:"target_fps"`
	// Sleep away the rest of a frame that finished early.
	LimitFrames bool `toml:"limit_frames"`
	// Directory holding the shader library, relative to the working directory.
	AssetsDir string `toml:"assets_dir"`

	Renderer RendererConfig `toml:"renderer"`
}

type RendererConfig struct {
	Validation       bool       `toml:"validation"`
	ClearColor       [4]float32 `toml:"clear_color"`
	AcquireTimeoutMS uint64     `toml:"acquire_timeout_ms"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		Name:        "Hello Triangle",
		LogLevel:    core.InfoLevel,
		TargetFPS:   60,
		LimitFrames: true,
		AssetsDir:   "assets",
		Renderer: RendererConfig{
			Validation:       false,
			ClearColor:       [4]float32{0, 0, 0, 1},
			AcquireTimeoutMS: 1000,
		},
	}
}

// LoadApplicationConfig overlays the TOML file at path on the defaults. A
// missing file is not an error.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("window size %dx%d has no area", c.StartWidth, c.StartHeight)
	}
	if c.TargetFPS == 0 {
		return errors.New("target_fps must be positive")
	}
	if c.AssetsDir == "" {
		return errors.New("assets_dir is empty")
	}
	return nil
}

func (c *ApplicationConfig) backendConfig() metadata.RendererBackendConfig {
	return metadata.RendererBackendConfig{
		ApplicationName:   c.Name,
		Validation:        c.Renderer.Validation,
		AcquireTimeoutMS:  c.Renderer.AcquireTimeoutMS,
		MaxFramesInFlight: metadata.DefaultMaxFramesInFlight,
		ColorPixelFormat:  metadata.PixelFormatBGRA8Unorm,
	}
}
