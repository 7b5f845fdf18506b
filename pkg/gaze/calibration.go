package gaze

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

// CalibrationConfig holds the threshold search parameters.
type CalibrationConfig struct {
	Capacity         int     // Samples per side before calibration locks in
	TargetRatio      float64 // Iris area fraction the best threshold approaches
	MinThreshold     int     // First threshold of the sweep
	MaxThreshold     int     // Last threshold of the sweep (inclusive)
	Step             int     // Sweep step
	DefaultThreshold int     // Used before any sample exists
	Margin           int     // Pixels ignored on every edge when measuring area
}

// DefaultCalibrationConfig returns the empirically tuned defaults.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Capacity:         20,
		TargetRatio:      0.48,
		MinThreshold:     5,
		MaxThreshold:     100,
		Step:             5,
		DefaultThreshold: 50,
		Margin:           eyeMargin,
	}
}

// CalibrationSample is one threshold observation for an eye.
type CalibrationSample struct {
	Threshold int     `json:"threshold"`
	Ratio     float64 `json:"ratio"`
}

// Calibration learns, per eye, the binarization threshold that makes the
// iris cover TargetRatio of the eye frame. It converges over the first
// Capacity analyzed frames of each eye and then stops sampling.
//
// A Calibration is specific to one face under one lighting setup and is
// not safe for concurrent use.
type Calibration struct {
	config  CalibrationConfig
	samples [2][]CalibrationSample
}

// NewCalibration creates an empty calibration.
func NewCalibration(cfg CalibrationConfig) *Calibration {
	if cfg.Step <= 0 {
		cfg.Step = 1
	}
	return &Calibration{config: cfg}
}

// Config returns the calibration parameters.
func (c *Calibration) Config() CalibrationConfig {
	return c.config
}

// IsComplete reports whether both eyes have a full sample history.
func (c *Calibration) IsComplete() bool {
	return c.IsCompleteFor(LeftEye) && c.IsCompleteFor(RightEye)
}

// IsCompleteFor reports whether one eye has a full sample history.
func (c *Calibration) IsCompleteFor(side Side) bool {
	i, ok := side.index()
	if !ok {
		return c.IsComplete()
	}
	return len(c.samples[i]) >= c.config.Capacity
}

// Record appends a sample for side unless its history is full.
// It reports whether the sample was kept.
func (c *Calibration) Record(side Side, s CalibrationSample) bool {
	i, ok := side.index()
	if !ok || len(c.samples[i]) >= c.config.Capacity {
		return false
	}
	c.samples[i] = append(c.samples[i], s)
	return true
}

// Evaluate sweeps the threshold grid over an eye frame and records the
// candidate whose iris ratio is closest to the target. It does nothing
// once the side is complete.
func (c *Calibration) Evaluate(eye gocv.Mat, side Side) {
	if c.IsCompleteFor(side) || eye.Empty() {
		return
	}
	best := c.Sweep(eye)
	if c.Record(side, best) {
		i, _ := side.index()
		debug.Track("calibration sample", "side", side, "samples", len(c.samples[i]),
			"capacity", c.config.Capacity, "threshold", best.Threshold, "ratio", best.Ratio)
	}
}

// Sweep measures every threshold of the grid and returns the best one.
func (c *Calibration) Sweep(eye gocv.Mat) CalibrationSample {
	var (
		best     CalibrationSample
		bestDist = math.Inf(1)
	)
	for t := c.config.MinThreshold; t <= c.config.MaxThreshold; t += c.config.Step {
		processed := ProcessEye(eye, t)
		ratio := AreaRatio(processed, c.config.Margin)
		processed.Close()

		if d := math.Abs(ratio - c.config.TargetRatio); d < bestDist {
			best, bestDist = CalibrationSample{Threshold: t, Ratio: ratio}, d
		}
	}
	return best
}

// Threshold returns the threshold of the stored sample closest to the
// target ratio, or the default before any sample exists.
func (c *Calibration) Threshold(side Side) int {
	i, ok := side.index()
	if !ok || len(c.samples[i]) == 0 {
		return c.config.DefaultThreshold
	}
	best := c.samples[i][0]
	for _, s := range c.samples[i][1:] {
		if math.Abs(s.Ratio-c.config.TargetRatio) < math.Abs(best.Ratio-c.config.TargetRatio) {
			best = s
		}
	}
	return best.Threshold
}

// Samples returns a copy of the history for side.
func (c *Calibration) Samples(side Side) []CalibrationSample {
	i, ok := side.index()
	if !ok {
		return nil
	}
	return append([]CalibrationSample(nil), c.samples[i]...)
}

// Reset drops all samples so calibration starts over.
func (c *Calibration) Reset() {
	c.samples = [2][]CalibrationSample{}
}

// AreaRatio returns the fraction of foreground pixels in a processed eye
// frame, ignoring margin pixels on each edge. Frames too small for the
// margin are measured whole.
func AreaRatio(processed gocv.Mat, margin int) float64 {
	if processed.Empty() {
		return 0
	}
	inner := image.Rect(0, 0, processed.Cols(), processed.Rows()).Inset(margin)
	if margin <= 0 || inner.Empty() {
		return float64(gocv.CountNonZero(processed)) / float64(processed.Rows()*processed.Cols())
	}

	region := processed.Region(inner)
	defer region.Close()
	return float64(gocv.CountNonZero(region)) / float64(inner.Dx()*inner.Dy())
}
