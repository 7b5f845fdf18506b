package face

import (
	"errors"
	"image"
	"testing"

	pigo "github.com/esimov/pigo/core"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name   string
		det    Detection
		expect image.Point
	}{
		{
			name:   "origin box",
			det:    Detection{Rect: image.Rect(0, 0, 100, 100)},
			expect: image.Pt(50, 50),
		},
		{
			name:   "offset box",
			det:    Detection{Rect: image.Rect(200, 100, 260, 180)},
			expect: image.Pt(230, 140),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.det.Center(); got != tc.expect {
				t.Errorf("Center: got %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestDetection_Area(t *testing.T) {
	d := Detection{Rect: image.Rect(10, 10, 30, 50)}
	if got := d.Area(); got != 800 {
		t.Errorf("Area: got %d, want 800", got)
	}
}

func TestRects_KeepsOrder(t *testing.T) {
	dets := []Detection{
		{Rect: image.Rect(0, 0, 10, 10), Confidence: 0.7},
		{Rect: image.Rect(5, 5, 50, 50), Confidence: 0.9},
	}
	rects := Rects(dets)
	if len(rects) != 2 || rects[0] != dets[0].Rect || rects[1] != dets[1].Rect {
		t.Errorf("Rects: got %v", rects)
	}
	if Rects(nil) != nil {
		t.Error("Rects(nil) should be nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelPath == "" {
		t.Error("DefaultConfig: ModelPath should not be empty")
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("DefaultConfig: ConfidenceThresh should be 0-1, got %f", cfg.ConfidenceThresh)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		t.Errorf("DefaultConfig: input size should be positive, got %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
}

func TestNewYuNet_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	_, err := NewYuNet(cfg)
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	var me *ModelError
	if !errors.As(err, &me) || me.Path != cfg.ModelPath {
		t.Errorf("expected ModelError with path, got %v", err)
	}
}

func TestNewPigo_MissingCascade(t *testing.T) {
	cfg := DefaultPigoConfig()
	cfg.CascadePath = "/nonexistent/facefinder"

	if _, err := NewPigo(cfg); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestPigoDetections(t *testing.T) {
	dets := []pigo.Detection{
		{Row: 100, Col: 100, Scale: 80, Q: 3.0},  // too weak
		{Row: 200, Col: 150, Scale: 100, Q: 12.0},
		{Row: 120, Col: 300, Scale: 60, Q: 20.0},
	}

	got := pigoDetections(dets, 5.0)
	if len(got) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(got))
	}
	if got[0].Confidence != 20.0 {
		t.Errorf("expected best first, got %v", got[0].Confidence)
	}
	if want := image.Rect(270, 90, 330, 150); got[0].Rect != want {
		t.Errorf("rect: got %v, want %v", got[0].Rect, want)
	}
	if want := image.Rect(100, 150, 200, 250); got[1].Rect != want {
		t.Errorf("rect: got %v, want %v", got[1].Rect, want)
	}
}
