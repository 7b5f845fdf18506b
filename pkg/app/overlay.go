package app

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// BGR (147,58,31).
var overlayColor = color.RGBA{R: 31, G: 58, B: 147, A: 0}

// DrawOverlay writes the gaze label and pupil coordinates onto img.
func DrawOverlay(img *gocv.Mat, a *gaze.Analysis) {
	if img.Empty() {
		return
	}
	if label := a.Label(); label != "" {
		gocv.PutText(img, label, image.Pt(90, 60), gocv.FontHersheyDuplex, 1.6, overlayColor, 2)
	}
	left, lok := a.PupilLeftCoords()
	right, rok := a.PupilRightCoords()
	gocv.PutText(img, "Left pupil:  "+FormatPoint(left, lok), image.Pt(90, 130), gocv.FontHersheyDuplex, 0.9, overlayColor, 1)
	gocv.PutText(img, "Right pupil: "+FormatPoint(right, rok), image.Pt(90, 165), gocv.FontHersheyDuplex, 0.9, overlayColor, 1)
}

// FormatPoint renders a pupil position, or "None" when it is absent.
func FormatPoint(p image.Point, ok bool) string {
	if !ok {
		return "None"
	}
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}
