// Package app wires the gaze pipeline to its inputs and outputs for the
// command line tools: a frame source, the face models, the estimator and
// the optional window, video writer, recorder, dashboard and backlight.
package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/pkg/capture"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Face detector backends.
const (
	DetectorYuNet = "yunet"
	DetectorPigo  = "pigo"
)

// Config holds all configuration for a gaze run.
// Flag parsing is done in the cmd packages; this struct is data only.
type Config struct {
	// Debug enables verbose per-frame logging.
	Debug    bool
	LogLevel string

	// Source is a camera index or video path. Image, when set, replaces
	// it with a single still image.
	Source string
	Image  string
	Preset string // capture preset name; empty keeps the device default

	// Models.
	Detector      string // "yunet" or "pigo"
	FaceModel     string
	LandmarkModel string
	PigoCascade   string

	// Processing.
	Equalize          bool // equalize the first frame
	EqualizeEachFrame bool // equalize every frame
	Flip              bool

	// Outputs.
	Output     string // video file, or image file when Image is set
	FourCC     string
	ShowWindow bool
	Record     string // sqlite path; empty disables recording
	// Focus is the screen point the subject looks at while recording
	// labelled data. It is stored with every sample.
	Focus *gaze.Point
	WebPort    string // dashboard port; empty disables the dashboard

	// Brightness control.
	Brightness bool
	Backlight  string // sysfs device; empty picks the first one
	DryRun     bool   // log brightness changes instead of applying them

	// FrameDelay paces the loop; zero runs at source speed.
	FrameDelay time.Duration
}

// DefaultConfig returns defaults for an interactive session on camera 0.
func DefaultConfig() Config {
	return Config{
		LogLevel:      config.DefaultLogLevel,
		Source:        config.DefaultCamera,
		Detector:      DetectorYuNet,
		FaceModel:     config.DefaultFaceModel,
		LandmarkModel: config.DefaultLandmarkModel,
		PigoCascade:   config.DefaultPigoCascade,
		FourCC:        capture.DefaultFourCC,
		ShowWindow:    true,
	}
}

// LoadEnvConfig applies GAZE_* environment variables to fields still at
// their defaults. Call it before flag parsing and use the result as the
// flag defaults, so explicit flags win over the environment.
func (c *Config) LoadEnvConfig() {
	def := DefaultConfig()
	if c.Source == def.Source {
		c.Source = config.Camera()
	}
	if c.FaceModel == def.FaceModel {
		c.FaceModel = config.FaceModel()
	}
	if c.LandmarkModel == def.LandmarkModel {
		c.LandmarkModel = config.LandmarkModel()
	}
	if c.PigoCascade == def.PigoCascade {
		c.PigoCascade = config.PigoCascade()
	}
	if c.LogLevel == def.LogLevel {
		c.LogLevel = config.LogLevel()
	}
	if c.Record == "" {
		c.Record = config.Database()
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Detector {
	case DetectorYuNet, DetectorPigo:
	default:
		return &ConfigError{Field: "Detector", Message: fmt.Sprintf("unknown detector %q (want yunet or pigo)", c.Detector)}
	}
	if c.Image == "" && c.Source == "" {
		return &ConfigError{Field: "Source", Message: "a camera, video or image is required"}
	}
	if c.Preset != "" && capture.GetPreset(c.Preset) == nil {
		return &ConfigError{Field: "Preset", Message: fmt.Sprintf("unknown preset %q (want %s)", c.Preset, strings.Join(capture.PresetNames(), ", "))}
	}
	if c.Focus != nil && c.Record == "" {
		return &ConfigError{Field: "Focus", Message: "a focus point needs a recording database"}
	}
	if c.FrameDelay < 0 {
		return &ConfigError{Field: "FrameDelay", Message: "frame delay must not be negative"}
	}
	return nil
}

// CaptureConfig returns the capture settings for Source.
func (c *Config) CaptureConfig() capture.Config {
	cfg := capture.DefaultConfig()
	if p := capture.GetPreset(c.Preset); p != nil {
		cfg = *p
	}
	cfg.Device = c.Source
	return cfg
}

// ParseFocus parses a focus point written as "x,y".
func ParseFocus(s string) (gaze.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return gaze.Point{}, &ConfigError{Field: "Focus", Message: fmt.Sprintf("focus %q: want x,y", s)}
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil || x < 0 || y < 0 {
		return gaze.Point{}, &ConfigError{Field: "Focus", Message: fmt.Sprintf("focus %q: want non-negative integers", s)}
	}
	return gaze.Point{X: x, Y: y}, nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
