// Package face provides face detection and 68-point landmark prediction
// backends for the gaze pipeline.
package face

import (
	"image"
	"math"
)

// NumLandmarks is the size of the Multi-PIE landmark scheme.
const NumLandmarks = 68

// Eye contour indices in the 68-point scheme, clockwise from the outer corner:
// corner, two upper lid points, corner, two lower lid points.
var (
	LeftEyeIndices  = [6]int{36, 37, 38, 39, 40, 41}
	RightEyeIndices = [6]int{42, 43, 44, 45, 46, 47}
)

// Landmarks holds the 68 facial landmark points in frame coordinates.
type Landmarks [NumLandmarks]image.Point

// Pick returns the points at the given indices.
func (l *Landmarks) Pick(idx [6]int) [6]image.Point {
	var pts [6]image.Point
	for i, j := range idx {
		pts[i] = l[j]
	}
	return pts
}

// Bounds returns the smallest rectangle containing every landmark.
func (l *Landmarks) Bounds() image.Rectangle {
	r := image.Rectangle{Min: l[0], Max: l[0]}
	for _, p := range l[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Midpoint returns the integer midpoint between two points.
func Midpoint(a, b image.Point) image.Point {
	return image.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
