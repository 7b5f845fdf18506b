package gaze

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/face"
)

// ErrNoFrame is returned when an empty frame is submitted for analysis.
var ErrNoFrame = errors.New("gaze: empty frame")

// FaceDetector finds face boxes in a gray frame.
type FaceDetector interface {
	DetectFaces(gray gocv.Mat) ([]image.Rectangle, error)
}

// LandmarkPredictor fits the 68-point landmark model inside a face box.
type LandmarkPredictor interface {
	PredictLandmarks(gray gocv.Mat, box image.Rectangle) (face.Landmarks, error)
}

// EqualizeMode controls histogram equalization of incoming frames.
type EqualizeMode int

const (
	EqualizeOff         EqualizeMode = iota // Never equalize
	EqualizePendingOnce                     // Equalize the next frame, then become Applied
	EqualizeApplied                         // Already applied once; no further equalization
)

// String returns the mode name.
func (m EqualizeMode) String() string {
	switch m {
	case EqualizePendingOnce:
		return "pending"
	case EqualizeApplied:
		return "applied"
	default:
		return "off"
	}
}

// EqualizeColor equalizes the luma channel of a BGR frame in place.
// Gray frames are equalized directly.
func EqualizeColor(frame *gocv.Mat) {
	if frame.Empty() {
		return
	}
	if frame.Channels() == 1 {
		gocv.EqualizeHist(*frame, frame)
		return
	}

	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	gocv.CvtColor(*frame, &ycrcb, gocv.ColorBGRToYCrCb)

	channels := gocv.Split(ycrcb)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	gocv.EqualizeHist(channels[0], &channels[0])
	gocv.Merge(channels, &ycrcb)
	gocv.CvtColor(ycrcb, frame, gocv.ColorYCrCbToBGR)
}

// toGray returns a single channel copy of frame.
func toGray(frame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}
	return gray
}

// Pipeline is the per-frame gaze analysis. It holds no frame state; the
// only thing it mutates is Calibration.
type Pipeline struct {
	Detector    FaceDetector
	Predictor   LandmarkPredictor
	Calibration *Calibration
	Logger      *slog.Logger
}

// Analyze runs face detection, landmark fitting and eye isolation on a
// copy of frame. The returned Analysis owns that copy and must be
// closed. The returned mode is the equalization mode to use for the
// next frame.
//
// A missing face or failing model is not an error: the Analysis simply
// reports no pupils. Only an empty frame is rejected.
func (p *Pipeline) Analyze(frame gocv.Mat, mode EqualizeMode) (*Analysis, EqualizeMode, error) {
	if frame.Empty() {
		return nil, mode, ErrNoFrame
	}

	a := &Analysis{Frame: frame.Clone(), Time: time.Now()}
	if mode == EqualizePendingOnce {
		EqualizeColor(&a.Frame)
		a.Equalized = true
		mode = EqualizeApplied
	}

	gray := toGray(a.Frame)
	defer gray.Close()

	faces, err := p.Detector.DetectFaces(gray)
	if err != nil {
		p.logger().Debug("face detection failed", "error", err)
		return a, mode, nil
	}
	if len(faces) == 0 {
		return a, mode, nil
	}

	a.Face = faces[0]
	lm, err := p.Predictor.PredictLandmarks(gray, a.Face)
	if err != nil {
		p.logger().Debug("landmark prediction failed", "error", err, "face", a.Face)
		a.Face = image.Rectangle{}
		return a, mode, nil
	}

	a.Left = NewEye(gray, &lm, LeftEye, p.Calibration)
	a.Right = NewEye(gray, &lm, RightEye, p.Calibration)
	return a, mode, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithCalibration replaces the default calibration.
func WithCalibration(c *Calibration) Option {
	return func(e *Estimator) {
		if c != nil {
			e.pipeline.Calibration = c
		}
	}
}

// WithEqualize arms histogram equalization for the first frame.
func WithEqualize(on bool) Option {
	return func(e *Estimator) {
		if on {
			e.equalize = EqualizePendingOnce
		} else {
			e.equalize = EqualizeOff
		}
	}
}

// WithLogger sets the logger used for model failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Estimator) {
		e.pipeline.Logger = logger
	}
}

// Estimator keeps the latest Analysis and the calibration that persists
// across frames. Submit frames with Refresh and query the last result.
// It is not safe for concurrent use; one goroutine should own it.
type Estimator struct {
	pipeline Pipeline
	equalize EqualizeMode
	current  *Analysis
}

// New creates an estimator backed by the given models.
func New(detector FaceDetector, predictor LandmarkPredictor, opts ...Option) (*Estimator, error) {
	if detector == nil || predictor == nil {
		return nil, fmt.Errorf("gaze: detector and landmark predictor are required")
	}
	e := &Estimator{
		pipeline: Pipeline{
			Detector:    detector,
			Predictor:   predictor,
			Calibration: NewCalibration(DefaultCalibrationConfig()),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Refresh analyzes frame and makes the result current. The frame is
// copied; the caller keeps ownership of it.
func (e *Estimator) Refresh(frame gocv.Mat) error {
	a, mode, err := e.pipeline.Analyze(frame, e.equalize)
	if err != nil {
		return err
	}
	e.equalize = mode
	e.current.Close()
	e.current = a
	return nil
}

// Analysis returns the current analysis, nil before the first Refresh.
// It stays valid until the next Refresh or Close.
func (e *Estimator) Analysis() *Analysis {
	return e.current
}

// Frame returns the frame held by the current analysis.
func (e *Estimator) Frame() gocv.Mat {
	if e.current == nil {
		return gocv.NewMat()
	}
	return e.current.Frame
}

// Calibration returns the calibration in use.
func (e *Estimator) Calibration() *Calibration {
	return e.pipeline.Calibration
}

// ResetCalibration discards all calibration samples.
func (e *Estimator) ResetCalibration() {
	e.pipeline.Calibration.Reset()
}

// EqualizeMode returns the mode the next Refresh will use.
func (e *Estimator) EqualizeMode() EqualizeMode {
	return e.equalize
}

// ArmEqualization requests equalization of the next frame.
func (e *Estimator) ArmEqualization() {
	e.equalize = EqualizePendingOnce
}

// PupilsLocated reports whether both pupils were located in the current frame.
func (e *Estimator) PupilsLocated() bool { return e.current.PupilsLocated() }

// PupilLeftCoords returns the left pupil in frame coordinates.
func (e *Estimator) PupilLeftCoords() (image.Point, bool) { return e.current.PupilLeftCoords() }

// PupilRightCoords returns the right pupil in frame coordinates.
func (e *Estimator) PupilRightCoords() (image.Point, bool) { return e.current.PupilRightCoords() }

// HorizontalRatio returns the horizontal gaze ratio.
func (e *Estimator) HorizontalRatio() (float64, bool) { return e.current.HorizontalRatio() }

// VerticalRatio returns the vertical gaze ratio.
func (e *Estimator) VerticalRatio() (float64, bool) { return e.current.VerticalRatio() }

// IsRight reports whether the user looks right.
func (e *Estimator) IsRight() (bool, bool) { return e.current.IsRight() }

// IsLeft reports whether the user looks left.
func (e *Estimator) IsLeft() (bool, bool) { return e.current.IsLeft() }

// IsCenter reports whether the user looks straight ahead.
func (e *Estimator) IsCenter() (bool, bool) { return e.current.IsCenter() }

// IsBlinking reports whether the eyes are closed.
func (e *Estimator) IsBlinking() (bool, bool) { return e.current.IsBlinking() }

// AnnotatedFrame returns a copy of the current frame with eye boxes and
// pupils drawn. The caller owns the result.
func (e *Estimator) AnnotatedFrame(side Side, thickness int) gocv.Mat {
	return e.current.AnnotatedFrame(side, thickness)
}

// Close releases the current analysis.
func (e *Estimator) Close() {
	e.current.Close()
	e.current = nil
}
