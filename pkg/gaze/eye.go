package gaze

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/face"
)

// Side selects an eye. Left and right are from the camera's point of view
// in the 68-point scheme.
type Side int

const (
	LeftEye Side = iota
	RightEye
	BothEyes
)

// eyeMargin is the padding, in pixels, kept around the eye contour when
// cropping.
const eyeMargin = 5

// String returns a human readable name for the side.
func (s Side) String() string {
	switch s {
	case LeftEye:
		return "left"
	case RightEye:
		return "right"
	case BothEyes:
		return "both"
	default:
		return "unknown"
	}
}

// index maps a single side to its slot in per-eye arrays.
func (s Side) index() (int, bool) {
	switch s {
	case LeftEye, RightEye:
		return int(s), true
	default:
		return 0, false
	}
}

// Vec is a point or extent with sub-pixel precision.
type Vec struct {
	X, Y float64
}

// Eye is an isolated eye: a cropped, masked gray frame plus its geometry
// and pupil. It is rebuilt for every analyzed frame.
type Eye struct {
	Side       Side
	Frame      gocv.Mat       // Crop of the gray face frame, 255 outside the eye contour
	Origin     image.Point    // Top-left of the crop in the face frame
	Center     Vec            // Half the crop size, in crop coordinates
	Points     [6]image.Point // Eye contour landmarks in face frame coordinates
	BlinkRatio float64        // Eye width over eye height; 0 when the height is 0
	Closed     bool           // Eye height is 0
	Pupil      Pupil
}

// NewEye isolates one eye from a gray face frame using its landmarks and
// locates the pupil. While the side is still calibrating, the crop is
// first fed to calib. A nil calib uses the default threshold.
//
// Any side other than LeftEye builds the right eye.
func NewEye(gray gocv.Mat, lm *face.Landmarks, side Side, calib *Calibration) *Eye {
	idx := face.RightEyeIndices
	if side == LeftEye {
		idx = face.LeftEyeIndices
	} else {
		side = RightEye
	}

	e := &Eye{Side: side, Points: lm.Pick(idx)}
	e.BlinkRatio, e.Closed = BlinkRatio(e.Points)
	e.isolate(gray)

	if e.Frame.Empty() {
		e.Pupil = Pupil{X: e.Center.X, Y: e.Center.Y}
		return e
	}

	threshold := DefaultCalibrationConfig().DefaultThreshold
	if calib != nil {
		if !calib.IsCompleteFor(side) {
			calib.Evaluate(e.Frame, side)
		}
		threshold = calib.Threshold(side)
	}
	e.Pupil = LocatePupil(e.Frame, threshold)
	return e
}

// isolate crops the eye contour's bounding box grown by eyeMargin and
// paints everything outside the contour white.
func (e *Eye) isolate(gray gocv.Mat) {
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())
	box := contourBounds(e.Points).Inset(-eyeMargin).Intersect(bounds)
	if box.Empty() {
		e.Frame = gocv.NewMat()
		e.Origin = box.Min
		return
	}
	e.Origin = box.Min
	e.Center = Vec{X: float64(box.Dx()) / 2, Y: float64(box.Dy()) / 2}

	local := make([]image.Point, len(e.Points))
	for i, p := range e.Points {
		local[i] = p.Sub(box.Min)
	}
	poly := gocv.NewPointsVectorFromPoints([][]image.Point{local})
	defer poly.Close()

	mask := gocv.Zeros(box.Dy(), box.Dx(), gocv.MatTypeCV8UC1)
	defer mask.Close()
	gocv.FillPoly(&mask, poly, color.RGBA{255, 255, 255, 255})

	region := gray.Region(box)
	defer region.Close()

	e.Frame = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), box.Dy(), box.Dx(), gocv.MatTypeCV8UC1)
	region.CopyToWithMask(&e.Frame, mask)
}

// PupilCoords returns the pupil position in face frame coordinates.
func (e *Eye) PupilCoords() image.Point {
	return image.Point{
		X: e.Origin.X + int(e.Pupil.X),
		Y: e.Origin.Y + int(e.Pupil.Y),
	}
}

// Bounds returns the crop rectangle in face frame coordinates.
func (e *Eye) Bounds() image.Rectangle {
	return image.Rectangle{
		Min: e.Origin,
		Max: e.Origin.Add(image.Pt(int(e.Center.X*2), int(e.Center.Y*2))),
	}
}

// CenterCoords returns the crop center in face frame coordinates.
func (e *Eye) CenterCoords() image.Point {
	return e.Origin.Add(image.Pt(int(e.Center.X), int(e.Center.Y)))
}

// Close releases the eye frame.
func (e *Eye) Close() {
	if e == nil {
		return
	}
	e.Frame.Close()
}

// BlinkRatio divides the eye width (corner to corner) by its height
// (between the midpoints of the upper and lower lid landmark pairs).
// A zero height yields 0 and closed=true.
func BlinkRatio(pts [6]image.Point) (ratio float64, closed bool) {
	width := face.Distance(pts[0], pts[3])
	top := face.Midpoint(pts[1], pts[2])
	bottom := face.Midpoint(pts[4], pts[5])
	height := face.Distance(top, bottom)
	if height == 0 {
		return 0, true
	}
	return width / height, false
}

func contourBounds(pts [6]image.Point) image.Rectangle {
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}
