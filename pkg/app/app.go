package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/attention"
	"github.com/teslashibe/go-gaze/pkg/capture"
	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/face"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/recorder"
	"github.com/teslashibe/go-gaze/pkg/web"
)

// WindowName is the title of the preview window.
const WindowName = "go-gaze"

const keyEsc = 27

// Source is a frame source that also reports its geometry.
type Source interface {
	gaze.FrameSource
	FPS() float64
	Size() image.Point
	Name() string
}

// App runs the gaze pipeline over one source.
type App struct {
	config Config
	logger *slog.Logger

	// Models
	detector   gaze.FaceDetector
	predictor  gaze.LandmarkPredictor
	modelFiles []io.Closer

	// Pipeline
	source    Source
	estimator *gaze.Estimator
	stream    *gaze.Stream

	// Outputs
	window    *gocv.Window
	writer    *capture.Writer
	recorder  *recorder.Recorder
	session   string
	server    *web.Server
	attention *attention.Controller

	frames   int
	shutdown sync.Once
}

// New creates an application with the given configuration.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	debug.SetTracking(cfg.Debug)

	return &App{config: cfg, logger: logger}, nil
}

// Init loads the models, opens the source and prepares the outputs.
// Call this after New() and before Run().
func (a *App) Init() error {
	if err := a.initModels(); err != nil {
		return fmt.Errorf("models: %w", err)
	}

	src, err := a.openSource()
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := a.attach(a.detector, a.predictor, src); err != nil {
		src.Close()
		return err
	}

	if err := a.initOutputs(); err != nil {
		return fmt.Errorf("outputs: %w", err)
	}
	return nil
}

func (a *App) initModels() error {
	switch a.config.Detector {
	case DetectorPigo:
		cfg := face.DefaultPigoConfig()
		cfg.CascadePath = a.config.PigoCascade
		d, err := face.NewPigo(cfg)
		if err != nil {
			return err
		}
		a.detector = d
		a.modelFiles = append(a.modelFiles, d)
	default:
		cfg := face.DefaultConfig()
		cfg.ModelPath = a.config.FaceModel
		d, err := face.NewYuNet(cfg)
		if err != nil {
			return err
		}
		a.detector = d
		a.modelFiles = append(a.modelFiles, d)
	}

	lcfg := face.DefaultLandmarkConfig()
	lcfg.ModelPath = a.config.LandmarkModel
	lm, err := face.NewLandmarker(lcfg)
	if err != nil {
		return err
	}
	a.predictor = lm
	a.modelFiles = append(a.modelFiles, lm)

	a.logger.Info("models loaded", "detector", a.config.Detector, "landmarks", a.config.LandmarkModel)
	return nil
}

func (a *App) openSource() (Source, error) {
	if a.config.Image != "" {
		return capture.OpenImage(a.config.Image)
	}
	return capture.Open(a.config.CaptureConfig())
}

// attach builds the estimator and stream over src.
func (a *App) attach(det gaze.FaceDetector, pred gaze.LandmarkPredictor, src Source) error {
	est, err := gaze.New(det, pred,
		gaze.WithEqualize(a.config.Equalize || a.config.EqualizeEachFrame),
		gaze.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.source = src
	a.estimator = est
	a.stream = gaze.NewStream(src, est,
		gaze.WithFlip(a.config.Flip),
		gaze.WithEqualizeEachFrame(a.config.EqualizeEachFrame),
	)

	size := src.Size()
	a.logger.Info("source opened", "source", src.Name(), "width", size.X, "height", size.Y, "fps", src.FPS())
	return nil
}

func (a *App) initOutputs() error {
	if a.config.ShowWindow {
		a.window = gocv.NewWindow(WindowName)
	}

	if a.config.Record != "" {
		rec, err := recorder.Open(a.config.Record)
		if err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
		id, err := rec.StartSession(a.source.Name())
		if err != nil {
			rec.Close()
			return fmt.Errorf("recorder: %w", err)
		}
		a.recorder, a.session = rec, id
		a.logger.Info("recording", "db", a.config.Record, "session", id, "focus", a.config.Focus)
	}

	if a.config.WebPort != "" {
		a.server = web.NewServer(a.config.WebPort, a.source.Name(), a.logger)
	}

	if a.config.Brightness {
		var bl attention.Backlight
		if a.config.DryRun {
			bl = attention.NewDryRun(50, a.logger)
		} else {
			sys, err := attention.NewSysfs("", a.config.Backlight)
			if err != nil {
				return err
			}
			bl = sys
		}
		ctrl, err := attention.NewController(attention.DefaultConfig(), bl, a.logger)
		if err != nil {
			return err
		}
		a.attention = ctrl
	}
	return nil
}

// Run processes frames until the source ends, Esc is pressed in the
// window or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.stream == nil {
		return errors.New("app: Run called before Init")
	}

	if a.server != nil {
		go func() {
			if err := a.server.Run(ctx); err != nil {
				a.logger.Error("dashboard stopped", "error", err)
			}
		}()
	}

	last := gocv.NewMat()
	defer func() { last.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		a.drainCommands()
		if !a.stream.Next() {
			break
		}
		a.frames++

		annotated, err := a.process(a.stream.Analysis())
		if err != nil {
			annotated.Close()
			return err
		}
		last.Close()
		last = annotated

		if a.window != nil {
			a.window.IMShow(annotated)
			if a.window.WaitKey(a.keyDelay()) == keyEsc {
				return nil
			}
		} else if !a.pause(ctx) {
			return nil
		}
	}

	a.logger.Info("source ended", "frames", a.frames)
	if a.config.Image != "" {
		return a.finishImage(last)
	}
	return nil
}

// process handles one analyzed frame and returns its annotated copy.
func (a *App) process(an *gaze.Analysis) (gocv.Mat, error) {
	annotated := an.AnnotatedFrame(gaze.BothEyes, 1)
	DrawOverlay(&annotated, an)
	sample := an.Sample()

	debug.Track("frame", "index", a.frames, "label", an.Label(),
		"left", sample.LeftPupil, "right", sample.RightPupil, "h", sample.Horizontal, "v", sample.Vertical)

	if a.config.Output != "" && a.config.Image == "" {
		if err := a.writeVideo(annotated); err != nil {
			return annotated, err
		}
	}
	if a.recorder != nil {
		if err := a.record(sample); err != nil {
			return annotated, err
		}
	}
	if a.server != nil {
		a.server.Publish(sample, web.SnapshotCalibration(a.estimator.Calibration()))
		if err := a.server.PublishFrame(annotated); err != nil {
			a.logger.Warn("preview failed", "error", err)
		}
	}
	if a.attention != nil {
		if err := a.attention.Observe(an.PupilsLocated()); err != nil {
			a.logger.Warn("brightness control failed", "error", err)
		}
	}
	return annotated, nil
}

func (a *App) record(sample gaze.Sample) error {
	if a.config.Focus != nil {
		return a.recorder.RecordFocus(a.session, sample, *a.config.Focus)
	}
	return a.recorder.Record(a.session, sample)
}

func (a *App) writeVideo(frame gocv.Mat) error {
	if a.writer == nil {
		w, err := capture.NewWriter(a.config.Output, a.config.FourCC, a.source.FPS(), image.Pt(frame.Cols(), frame.Rows()))
		if err != nil {
			return err
		}
		a.writer = w
		a.logger.Info("writing video", "path", a.config.Output, "fourcc", a.config.FourCC)
	}
	return a.writer.Write(frame)
}

// finishImage saves and shows the annotated still image.
func (a *App) finishImage(annotated gocv.Mat) error {
	if annotated.Empty() {
		return fmt.Errorf("%w: %s", capture.ErrOpenFailed, a.config.Image)
	}
	if a.config.Output != "" {
		if !gocv.IMWrite(a.config.Output, annotated) {
			return fmt.Errorf("write %s failed", a.config.Output)
		}
		a.logger.Info("image written", "path", a.config.Output)
	}
	if a.window != nil {
		a.window.IMShow(annotated)
		a.window.WaitKey(0)
	}
	return nil
}

// drainCommands applies dashboard requests between frames.
func (a *App) drainCommands() {
	if a.server == nil {
		return
	}
	for {
		select {
		case cmd := <-a.server.Commands():
			a.apply(cmd)
		default:
			return
		}
	}
}

func (a *App) apply(cmd web.Command) {
	switch cmd {
	case web.CommandResetCalibration:
		a.estimator.ResetCalibration()
	case web.CommandEqualize:
		a.estimator.ArmEqualization()
	default:
		return
	}
	a.logger.Info("dashboard command applied", "command", cmd)
}

// keyDelay is the window wait in milliseconds: the source frame period
// for files, 1 ms for live cameras, and at least FrameDelay.
func (a *App) keyDelay() int {
	ms := 1
	if fps := a.source.FPS(); fps > 0 && !a.isCamera() {
		ms = max(int(1000/fps), 10)
	}
	return max(ms, int(a.config.FrameDelay/time.Millisecond))
}

func (a *App) isCamera() bool {
	cfg := a.config.CaptureConfig()
	return a.config.Image == "" && cfg.IsCamera()
}

// pause waits FrameDelay between frames without a window. It reports
// false when ctx was cancelled meanwhile.
func (a *App) pause(ctx context.Context) bool {
	if a.config.FrameDelay <= 0 {
		return true
	}
	t := time.NewTimer(a.config.FrameDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Frames returns the number of frames processed.
func (a *App) Frames() int {
	return a.frames
}

// Estimator returns the estimator, nil before Init.
func (a *App) Estimator() *gaze.Estimator {
	return a.estimator
}

// Shutdown releases every resource. It is safe to call after a failed Init
// and more than once.
func (a *App) Shutdown() {
	a.shutdown.Do(a.release)
}

func (a *App) release() {
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.logger.Warn("close source", "error", err)
		}
	}
	if a.estimator != nil {
		a.estimator.Close()
	}
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Warn("close video", "error", err)
		}
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
	for _, m := range a.modelFiles {
		m.Close()
	}
}
