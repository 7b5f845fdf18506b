package face

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

// PigoConfig holds configuration for the pure Go cascade detector.
type PigoConfig struct {
	CascadePath  string
	MinSize      int     // Smallest face side in pixels
	MaxSize      int     // Largest face side in pixels
	ShiftFactor  float64 // Sliding window step as a fraction of window size
	ScaleFactor  float64 // Scale step between pyramid levels
	IoUThreshold float64 // Overlap above which detections are merged
	MinQuality   float32 // Detections scoring below this are dropped
}

// DefaultPigoConfig returns defaults suited to a webcam at arm's length.
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		CascadePath:  "models/facefinder",
		MinSize:      80,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// PigoDetector detects faces with the pigo pixel-intensity cascade.
// It needs no OpenCV model files, only the facefinder cascade.
type PigoDetector struct {
	classifier *pigo.Pigo
	config     PigoConfig
	gray       gocv.Mat
}

// NewPigo reads and unpacks the cascade file.
func NewPigo(cfg PigoConfig) (*PigoDetector, error) {
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ModelError{Path: cfg.CascadePath, Err: ErrModelNotFound}
		}
		return nil, &ModelError{Path: cfg.CascadePath, Err: err}
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, &ModelError{Path: cfg.CascadePath, Err: fmt.Errorf("%w: %v", ErrModelInvalid, err)}
	}

	return &PigoDetector{
		classifier: classifier,
		config:     cfg,
		gray:       gocv.NewMat(),
	}, nil
}

// DetectFaces runs the cascade over a gray frame and returns faces ordered
// by descending quality.
func (p *PigoDetector) DetectFaces(img gocv.Mat) ([]image.Rectangle, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	src := img
	if img.Channels() != 1 {
		gocv.CvtColor(img, &p.gray, gocv.ColorBGRToGray)
		src = p.gray
	}

	params := pigo.ImageParams{
		Pixels: src.ToBytes(),
		Rows:   src.Rows(),
		Cols:   src.Cols(),
		Dim:    src.Cols(),
	}
	cParams := pigo.CascadeParams{
		MinSize:     p.config.MinSize,
		MaxSize:     p.config.MaxSize,
		ShiftFactor: p.config.ShiftFactor,
		ScaleFactor: p.config.ScaleFactor,
		ImageParams: params,
	}

	dets := p.classifier.RunCascade(cParams, 0.0)
	dets = p.classifier.ClusterDetections(dets, p.config.IoUThreshold)

	found := pigoDetections(dets, p.config.MinQuality)
	if len(found) > 0 {
		debug.Track("pigo faces", "count", len(found))
	}
	return Rects(found), nil
}

// Close releases the scratch buffer.
func (p *PigoDetector) Close() error {
	p.gray.Close()
	return nil
}

// pigoDetections converts cascade hits (center row/col plus side) into
// detections, dropping weak ones and sorting the rest best first.
func pigoDetections(dets []pigo.Detection, minQ float32) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Q < minQ {
			continue
		}
		half := d.Scale / 2
		out = append(out, Detection{
			Rect:       image.Rect(d.Col-half, d.Row-half, d.Col-half+d.Scale, d.Row-half+d.Scale),
			Confidence: float64(d.Q),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
