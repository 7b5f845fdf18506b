package gaze

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/face"
)

func grayColor(v uint8) color.RGBA {
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

func solidGray(rows, cols int, v uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

func solidBGR(rows, cols int, v uint8) gocv.Mat {
	s := float64(v)
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(s, s, s, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// eyeHexagon returns six contour points in landmark order around c.
func eyeHexagon(c image.Point) [6]image.Point {
	return [6]image.Point{
		c.Add(image.Pt(-15, 0)),
		c.Add(image.Pt(-7, -8)),
		c.Add(image.Pt(7, -8)),
		c.Add(image.Pt(15, 0)),
		c.Add(image.Pt(7, 8)),
		c.Add(image.Pt(-7, 8)),
	}
}

func syntheticLandmarks(left, right image.Point) face.Landmarks {
	var lm face.Landmarks
	for i, p := range eyeHexagon(left) {
		lm[face.LeftEyeIndices[i]] = p
	}
	for i, p := range eyeHexagon(right) {
		lm[face.RightEyeIndices[i]] = p
	}
	return lm
}

func near(a, b image.Point, tol int) bool {
	d := a.Sub(b)
	return math.Abs(float64(d.X)) <= float64(tol) && math.Abs(float64(d.Y)) <= float64(tol)
}
