// Package attention dims the screen while nobody is looking at it.
//
// A Controller watches whether pupils are located frame by frame. A
// small hysteresis counter absorbs short dropouts; once it saturates the
// screen is brightened step by step, and once it drains the screen is
// dimmed step by step.
package attention

import (
	"fmt"
	"log/slog"
)

// Config holds the controller tuning.
type Config struct {
	Hold int // Consecutive frames needed before brightness changes
	Step int // Brightness change per frame, in percent
}

// DefaultConfig returns the standard hysteresis of 5 frames and 5% steps.
func DefaultConfig() Config {
	return Config{Hold: 5, Step: 5}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errors []string
	if c.Hold < 0 {
		errors = append(errors, "hold must not be negative")
	}
	if c.Step < 1 || c.Step > 100 {
		errors = append(errors, "step must be between 1 and 100")
	}
	return errors
}

// Backlight is a screen whose brightness can be changed.
type Backlight interface {
	// Adjust changes the brightness by delta percent and returns the new
	// level in percent, clamped to [0,100].
	Adjust(delta int) (int, error)
}

// Controller turns pupil observations into brightness changes.
// It is not safe for concurrent use.
type Controller struct {
	config    Config
	backlight Backlight
	logger    *slog.Logger
	count     int
	level     int
}

// NewController creates a controller driving backlight.
func NewController(cfg Config, backlight Backlight, logger *slog.Logger) (*Controller, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("attention: invalid config: %v", errs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{config: cfg, backlight: backlight, logger: logger, level: -1}, nil
}

// Decide updates the counter for one frame and returns the brightness
// change to request, 0 for none.
func (c *Controller) Decide(located bool) int {
	if located {
		if c.count < c.config.Hold {
			c.count++
			return 0
		}
		return c.config.Step
	}
	if c.count > 0 {
		c.count--
		return 0
	}
	return -c.config.Step
}

// Observe records one frame and applies the resulting change.
func (c *Controller) Observe(located bool) error {
	delta := c.Decide(located)
	if delta == 0 {
		return nil
	}
	level, err := c.backlight.Adjust(delta)
	if err != nil {
		return fmt.Errorf("attention: adjust brightness: %w", err)
	}
	if level != c.level {
		c.logger.Debug("brightness changed", "delta", delta, "level", level)
	}
	c.level = level
	return nil
}

// Count returns the hysteresis counter.
func (c *Controller) Count() int {
	return c.count
}

// Level returns the last brightness reported by the backlight, or -1
// before any change.
func (c *Controller) Level() int {
	return c.level
}
