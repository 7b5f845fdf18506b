package app

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestFormatPoint(t *testing.T) {
	tests := []struct {
		p    image.Point
		ok   bool
		want string
	}{
		{image.Pt(110, 55), true, "(110, 55)"},
		{image.Pt(0, 0), true, "(0, 0)"},
		{image.Pt(3, 4), false, "None"},
	}
	for _, tt := range tests {
		if got := FormatPoint(tt.p, tt.ok); got != tt.want {
			t.Errorf("FormatPoint(%v, %v) = %q, want %q", tt.p, tt.ok, got, tt.want)
		}
	}
}

func TestDrawOverlay_WritesPupilText(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 240, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	DrawOverlay(&img, nil)

	// Only the pupil lines are drawn when there is no analysis.
	changed := func(top, bottom int) int {
		n := 0
		for y := top; y < bottom; y++ {
			for x := 90; x < 400; x++ {
				if img.GetVecbAt(y, x)[0] != 255 {
					n++
				}
			}
		}
		return n
	}
	if changed(20, 65) != 0 {
		t.Error("label drawn without an analysis")
	}
	if changed(110, 135) == 0 {
		t.Error("left pupil line not drawn")
	}
	if changed(145, 170) == 0 {
		t.Error("right pupil line not drawn")
	}
}

func TestDrawOverlay_EmptyFrame(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()
	DrawOverlay(&img, nil)
}
