package gaze

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/face"
)

type fakeDetector struct {
	faces []image.Rectangle
	err   error
	calls int
}

func (d *fakeDetector) DetectFaces(gray gocv.Mat) ([]image.Rectangle, error) {
	d.calls++
	if gray.Channels() != 1 {
		return nil, errors.New("detector wants gray input")
	}
	return d.faces, d.err
}

type fakePredictor struct {
	lm    face.Landmarks
	err   error
	boxes []image.Rectangle
}

func (p *fakePredictor) PredictLandmarks(_ gocv.Mat, box image.Rectangle) (face.Landmarks, error) {
	p.boxes = append(p.boxes, box)
	return p.lm, p.err
}

var (
	leftPupil  = image.Pt(120, 150)
	rightPupil = image.Pt(260, 150)
)

// faceFrame draws two dark pupils on a bright BGR frame.
func faceFrame() gocv.Mat {
	frame := solidBGR(300, 400, 230)
	gocv.Circle(&frame, leftPupil, 5, grayColor(20), -1)
	gocv.Circle(&frame, rightPupil, 5, grayColor(20), -1)
	return frame
}

func newTestEstimator(t *testing.T, opts ...Option) (*Estimator, *fakeDetector, *fakePredictor) {
	t.Helper()
	det := &fakeDetector{faces: []image.Rectangle{
		image.Rect(80, 100, 300, 260),
		image.Rect(0, 0, 10, 10),
	}}
	pred := &fakePredictor{lm: syntheticLandmarks(leftPupil, rightPupil)}
	est, err := New(det, pred, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(est.Close)
	return est, det, pred
}

func TestNew_RequiresModels(t *testing.T) {
	if _, err := New(nil, &fakePredictor{}); err == nil {
		t.Error("expected error without detector")
	}
	if _, err := New(&fakeDetector{}, nil); err == nil {
		t.Error("expected error without predictor")
	}
}

func TestEstimator_BeforeRefresh(t *testing.T) {
	est, _, _ := newTestEstimator(t)

	if est.Analysis() != nil {
		t.Error("Analysis should be nil before the first frame")
	}
	if est.PupilsLocated() {
		t.Error("PupilsLocated should be false")
	}
	if _, ok := est.HorizontalRatio(); ok {
		t.Error("HorizontalRatio should be absent")
	}
	out := est.AnnotatedFrame(BothEyes, 1)
	defer out.Close()
	if !out.Empty() {
		t.Error("AnnotatedFrame should be empty before the first frame")
	}
}

func TestEstimator_RefreshEmptyFrame(t *testing.T) {
	est, _, _ := newTestEstimator(t)
	empty := gocv.NewMat()
	defer empty.Close()

	if err := est.Refresh(empty); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Refresh(empty) = %v, want ErrNoFrame", err)
	}
}

func TestEstimator_LocatesPupils(t *testing.T) {
	est, det, pred := newTestEstimator(t)
	frame := faceFrame()
	defer frame.Close()

	if err := est.Refresh(frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if det.calls != 1 {
		t.Errorf("detector calls = %d, want 1", det.calls)
	}
	if len(pred.boxes) != 1 || pred.boxes[0] != det.faces[0] {
		t.Errorf("predictor boxes = %v, want only the first face", pred.boxes)
	}
	if !est.PupilsLocated() {
		t.Fatal("pupils not located")
	}

	left, _ := est.PupilLeftCoords()
	right, _ := est.PupilRightCoords()
	if !near(left, leftPupil, 2) || !near(right, rightPupil, 2) {
		t.Errorf("pupils = %v %v, want near %v %v", left, right, leftPupil, rightPupil)
	}
	if c, ok := est.IsCenter(); !ok || !c {
		t.Error("centered pupils should look center")
	}
	if b, ok := est.IsBlinking(); !ok || b {
		t.Error("open eyes should not blink")
	}

	calib := est.Calibration()
	if len(calib.Samples(LeftEye)) != 1 || len(calib.Samples(RightEye)) != 1 {
		t.Error("each eye should add one calibration sample")
	}

	est.ResetCalibration()
	if len(calib.Samples(LeftEye)) != 0 {
		t.Error("ResetCalibration should clear samples")
	}
}

func TestEstimator_AnnotatedFrameLeavesFrame(t *testing.T) {
	est, _, _ := newTestEstimator(t)
	frame := faceFrame()
	defer frame.Close()

	if err := est.Refresh(frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out := est.AnnotatedFrame(LeftEye, 1)
	defer out.Close()

	p, ok := est.PupilLeftCoords()
	if !ok {
		t.Fatal("left pupil not located")
	}
	if got := out.GetVecbAt(p.Y, p.X)[1]; got != 255 {
		t.Errorf("annotated pupil green = %d, want 255", got)
	}
	if got := est.Frame().GetVecbAt(p.Y, p.X)[1]; got != 20 {
		t.Errorf("held frame pixel = %d, want 20", got)
	}
}

func TestEstimator_NoFace(t *testing.T) {
	est, det, pred := newTestEstimator(t)
	det.faces = nil
	frame := faceFrame()
	defer frame.Close()

	if err := est.Refresh(frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	a := est.Analysis()
	if a == nil || a.FaceFound() || est.PupilsLocated() {
		t.Error("no face should yield no pupils")
	}
	if len(pred.boxes) != 0 {
		t.Error("predictor should not run without a face")
	}
	if est.Frame().Empty() {
		t.Error("frame should still be held")
	}
}

func TestEstimator_ModelFailures(t *testing.T) {
	tests := []struct {
		name    string
		detErr  error
		predErr error
	}{
		{"detector", errors.New("boom"), nil},
		{"predictor", nil, errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, det, pred := newTestEstimator(t)
			det.err = tt.detErr
			pred.err = tt.predErr
			frame := faceFrame()
			defer frame.Close()

			if err := est.Refresh(frame); err != nil {
				t.Fatalf("Refresh: %v", err)
			}
			if est.PupilsLocated() {
				t.Error("model failure should yield no pupils")
			}
			if est.Analysis().FaceFound() {
				t.Error("model failure should yield no face")
			}
		})
	}
}

func TestEstimator_EqualizeOnce(t *testing.T) {
	est, _, _ := newTestEstimator(t, WithEqualize(true))
	frame := faceFrame()
	defer frame.Close()

	if err := est.Refresh(frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !est.Analysis().Equalized {
		t.Error("first frame should be equalized")
	}
	if est.EqualizeMode() != EqualizeApplied {
		t.Errorf("mode = %v, want applied", est.EqualizeMode())
	}
	if got := frame.GetVecbAt(0, 0)[0]; got != 230 {
		t.Errorf("caller frame changed: pixel = %d, want 230", got)
	}

	if err := est.Refresh(frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if est.Analysis().Equalized {
		t.Error("second frame should not be equalized")
	}

	est.ArmEqualization()
	if est.EqualizeMode() != EqualizePendingOnce {
		t.Errorf("mode = %v, want pending", est.EqualizeMode())
	}
}

func TestEstimator_EqualizeOff(t *testing.T) {
	est, _, _ := newTestEstimator(t)
	frame := faceFrame()
	defer frame.Close()

	for i := 0; i < 2; i++ {
		if err := est.Refresh(frame); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if est.Analysis().Equalized {
			t.Errorf("frame %d equalized with mode off", i)
		}
	}
}

func TestEqualizeColor(t *testing.T) {
	frame := solidBGR(20, 20, 40)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(0, 0, 9, 19), grayColor(60), -1)

	EqualizeColor(&frame)
	if frame.Channels() != 3 {
		t.Fatalf("channels = %d, want 3", frame.Channels())
	}
	dark := frame.GetVecbAt(10, 15)[0]
	bright := frame.GetVecbAt(10, 2)[0]
	if int(bright)-int(dark) < 100 {
		t.Errorf("contrast not stretched: dark=%d bright=%d", dark, bright)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	EqualizeColor(&empty)
}

func TestPipeline_Analyze(t *testing.T) {
	p := Pipeline{
		Detector:  &fakeDetector{faces: []image.Rectangle{image.Rect(80, 100, 300, 260)}},
		Predictor: &fakePredictor{lm: syntheticLandmarks(leftPupil, rightPupil)},
	}
	frame := faceFrame()
	defer frame.Close()

	a, mode, err := p.Analyze(frame, EqualizeOff)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	defer a.Close()

	if mode != EqualizeOff {
		t.Errorf("mode = %v, want off", mode)
	}
	if !a.PupilsLocated() {
		t.Error("pupils not located without calibration")
	}
}

func TestEstimator_QueriesAreStable(t *testing.T) {
	est, det, _ := newTestEstimator(t)
	frame := faceFrame()
	defer frame.Close()

	if err := est.Refresh(frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !est.PupilsLocated() {
		t.Fatal("pupils not located")
	}

	left, _ := est.PupilLeftCoords()
	right, _ := est.PupilRightCoords()
	h, _ := est.HorizontalRatio()
	v, _ := est.VerticalRatio()
	sample := est.Analysis().Sample()

	for i := 0; i < 3; i++ {
		if got, ok := est.PupilLeftCoords(); !ok || got != left {
			t.Errorf("call %d: left = %v, want %v", i, got, left)
		}
		if got, ok := est.PupilRightCoords(); !ok || got != right {
			t.Errorf("call %d: right = %v, want %v", i, got, right)
		}
		if got, ok := est.HorizontalRatio(); !ok || got != h {
			t.Errorf("call %d: horizontal = %v, want %v", i, got, h)
		}
		if got, ok := est.VerticalRatio(); !ok || got != v {
			t.Errorf("call %d: vertical = %v, want %v", i, got, v)
		}
		if got := est.Analysis().Sample(); got != sample {
			t.Errorf("call %d: sample = %+v, want %+v", i, got, sample)
		}
	}
	if det.calls != 1 {
		t.Errorf("detector calls = %d, want 1", det.calls)
	}
}
