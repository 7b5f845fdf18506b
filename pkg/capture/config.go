// Package capture opens the frame sources and sinks used by the gaze
// tools: cameras, video files, still images and video writers.
package capture

import (
	"fmt"
	"strconv"
)

// Config describes a frame source.
type Config struct {
	// Device is a camera index ("0") or a video file path.
	Device string `json:"device"`

	// Requested capture size and rate. Zero keeps the device default.
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// Limits accepted by Validate.
const (
	MaxWidth  = 3840
	MaxHeight = 2160
	MaxFPS    = 120
)

// DefaultConfig returns the first camera at its native resolution.
func DefaultConfig() Config {
	return Config{Device: "0"}
}

// IsCamera reports whether Device names a camera index.
func (c *Config) IsCamera() bool {
	_, ok := c.cameraIndex()
	return ok
}

func (c *Config) cameraIndex() (int, bool) {
	id, err := strconv.Atoi(c.Device)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must be a camera index or a file path")
	}
	if c.Width != 0 && (c.Width < 160 || c.Width > MaxWidth) {
		errors = append(errors, fmt.Sprintf("width must be 0 or between 160 and %d", MaxWidth))
	}
	if c.Height != 0 && (c.Height < 120 || c.Height > MaxHeight) {
		errors = append(errors, fmt.Sprintf("height must be 0 or between 120 and %d", MaxHeight))
	}
	if c.FPS < 0 || c.FPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("fps must be between 0 and %d", MaxFPS))
	}

	return errors
}

// Preset names for common configurations
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, Preset720p, Preset1080p}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p at 30 fps.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.FPS = 30
	return cfg
}

// HD1080Config returns 1080p at 30 fps. Pupils get more pixels at the
// cost of slower detection.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.FPS = 30
	return cfg
}
