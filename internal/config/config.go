package config

import (
	"fmt"

	"github.com/ivlev/timeline/internal/scene"
)

type Config struct {
	InputPath      string
	OutputVideo    string
	OutputTimeline string
	Width          int
	Height         int
	FPS            int
	Workers        int
	Background     string
	TotalDuration  float64 // if > 0 scenes are fitted to it
	AudioPath      string
	AudioSync      bool
	AutoZoom       bool
	Preset         string
	VideoEncoder   string
	Quality        int
	Debug          bool
	ShowStats      bool
	LogLevel       string
	BuildVersion   string
}

// FrameParams are the per-frame rasterization settings.
type FrameParams struct {
	Width, Height int
	Background    string
	Debug         bool
}

// Default returns the configuration used when neither flags nor the
// environment say otherwise.
func Default() Config {
	return Config{
		Width:      1280,
		Height:     720,
		FPS:        30,
		Workers:    4,
		Background: "#000000",
		AudioSync:  true,
		LogLevel:   "info",
	}
}

// ApplyPreset overrides the resolution for a named aspect preset.
func (c *Config) ApplyPreset(preset string) {
	switch preset {
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "1:1":
		c.Width, c.Height = 1080, 1080
	default:
		return
	}
	c.Preset = preset
}

// ApplySettings lets the project file override resolution, rate and
// background.
func (c *Config) ApplySettings(s *scene.Settings) {
	if s == nil {
		return
	}
	if s.Width > 0 && s.Height > 0 {
		c.Width, c.Height = s.Width, s.Height
	}
	if s.FPS > 0 {
		c.FPS = s.FPS
	}
	if s.Background != "" {
		c.Background = s.Background
	}
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	// yuv420p needs even dimensions
	if c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("resolution %dx%d must be even", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid worker count %d", c.Workers)
	}
	return nil
}

// Frame returns the rasterization settings.
func (c *Config) Frame() FrameParams {
	return FrameParams{
		Width:      c.Width,
		Height:     c.Height,
		Background: c.Background,
		Debug:      c.Debug,
	}
}
