package gaze

import (
	"image"
	"image/color"
	"math"
	"time"

	"gocv.io/x/gocv"
)

// Classification limits on the horizontal ratio and the blink ratio.
const (
	RightLimit = 0.35 // Horizontal ratio at or below this looks right
	LeftLimit  = 0.65 // Horizontal ratio at or above this looks left
	BlinkLimit = 3.8  // Mean blink ratio above this is a blink
)

// ratioInset keeps the crop margin out of the ratio denominators so a
// pupil against the eye corner does not read as 0 or 1.
const ratioInset = 2 * eyeMargin

// Annotation colors.
var (
	eyeBoxColor = color.RGBA{R: 0, G: 128, B: 233, A: 0}
	pupilColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// Direction is a coarse horizontal gaze class.
type Direction int

const (
	DirectionCenter Direction = iota
	DirectionLeft
	DirectionRight
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "center"
	}
}

// Classify maps a horizontal ratio to exactly one direction.
func Classify(horizontal float64) Direction {
	switch {
	case horizontal <= RightLimit:
		return DirectionRight
	case horizontal >= LeftLimit:
		return DirectionLeft
	default:
		return DirectionCenter
	}
}

// Analysis is the result of analyzing one frame. Every derived value is
// only defined when PupilsLocated is true; the accessors report that
// through their second return value.
type Analysis struct {
	Frame     gocv.Mat        // Color frame that was analyzed (equalized if requested)
	Face      image.Rectangle // Face used for landmarks; empty when none was found
	Left      *Eye            // nil when no face was found
	Right     *Eye            // nil when no face was found
	Equalized bool            // Frame was histogram equalized in this pass
	Time      time.Time
}

// FaceFound reports whether a face and its eyes were found.
func (a *Analysis) FaceFound() bool {
	return a != nil && a.Left != nil && a.Right != nil
}

// PupilsLocated reports whether both pupils were located. Check it
// before trusting any coordinate, ratio or classification.
func (a *Analysis) PupilsLocated() bool {
	return a.FaceFound() && a.Left.Pupil.Located && a.Right.Pupil.Located
}

// PupilLeftCoords returns the left pupil in frame coordinates.
func (a *Analysis) PupilLeftCoords() (image.Point, bool) {
	if !a.PupilsLocated() {
		return image.Point{}, false
	}
	return a.Left.PupilCoords(), true
}

// PupilRightCoords returns the right pupil in frame coordinates.
func (a *Analysis) PupilRightCoords() (image.Point, bool) {
	if !a.PupilsLocated() {
		return image.Point{}, false
	}
	return a.Right.PupilCoords(), true
}

// HorizontalRatio returns the horizontal gaze in [0,1]: 0 is extreme
// right, 0.5 center and 1 extreme left.
func (a *Analysis) HorizontalRatio() (float64, bool) {
	if !a.PupilsLocated() {
		return 0, false
	}
	l := axisRatio(a.Left.Pupil.X, a.Left.Center.X)
	r := axisRatio(a.Right.Pupil.X, a.Right.Center.X)
	return (l + r) / 2, true
}

// VerticalRatio returns the vertical gaze in [0,1]: 0 is extreme top,
// 0.5 center and 1 extreme bottom.
func (a *Analysis) VerticalRatio() (float64, bool) {
	if !a.PupilsLocated() {
		return 0, false
	}
	l := axisRatio(a.Left.Pupil.Y, a.Left.Center.Y)
	r := axisRatio(a.Right.Pupil.Y, a.Right.Center.Y)
	return (l + r) / 2, true
}

func axisRatio(pos, halfExtent float64) float64 {
	d := halfExtent*2 - ratioInset
	if d <= 0 {
		return 0
	}
	return pos / d
}

// Direction classifies the horizontal ratio.
func (a *Analysis) Direction() (Direction, bool) {
	h, ok := a.HorizontalRatio()
	if !ok {
		return DirectionCenter, false
	}
	return Classify(h), true
}

// IsRight reports whether the user looks right.
func (a *Analysis) IsRight() (bool, bool) {
	d, ok := a.Direction()
	return ok && d == DirectionRight, ok
}

// IsLeft reports whether the user looks left.
func (a *Analysis) IsLeft() (bool, bool) {
	d, ok := a.Direction()
	return ok && d == DirectionLeft, ok
}

// IsCenter reports whether the user looks straight ahead.
func (a *Analysis) IsCenter() (bool, bool) {
	d, ok := a.Direction()
	return ok && d == DirectionCenter, ok
}

// IsBlinking reports whether the eyes are closed. An eye whose lids meet
// counts as fully closed.
func (a *Analysis) IsBlinking() (bool, bool) {
	if !a.PupilsLocated() {
		return false, false
	}
	return meanBlinkRatio(a.Left, a.Right) > BlinkLimit, true
}

func meanBlinkRatio(eyes ...*Eye) float64 {
	var sum float64
	for _, e := range eyes {
		if e.Closed {
			return math.Inf(1)
		}
		sum += e.BlinkRatio
	}
	return sum / float64(len(eyes))
}

// eyes returns the eyes selected by side.
func (a *Analysis) eyes(side Side) []*Eye {
	switch side {
	case LeftEye:
		return []*Eye{a.Left}
	case RightEye:
		return []*Eye{a.Right}
	default:
		return []*Eye{a.Left, a.Right}
	}
}

// AnnotatedFrame returns a copy of the frame with eye boxes and pupil
// crosshairs drawn on it. The analyzed frame itself is left untouched.
// Without located pupils the copy is returned unannotated. The caller
// owns the returned Mat.
func (a *Analysis) AnnotatedFrame(side Side, thickness int) gocv.Mat {
	if a == nil || a.Frame.Empty() {
		return gocv.NewMat()
	}
	out := a.Frame.Clone()
	if !a.PupilsLocated() {
		return out
	}
	if thickness < 1 {
		thickness = 1
	}

	eyes := a.eyes(side)
	for _, e := range eyes {
		gocv.Rectangle(&out, e.Bounds(), eyeBoxColor, thickness)
	}

	arm := 3 + 2*thickness
	for _, e := range eyes {
		p := e.PupilCoords()
		gocv.Line(&out, image.Pt(p.X-arm, p.Y), image.Pt(p.X+arm, p.Y), pupilColor, thickness)
		gocv.Line(&out, image.Pt(p.X, p.Y-arm), image.Pt(p.X, p.Y+arm), pupilColor, thickness)
	}
	return out
}

// Label returns the status line shown on annotated output.
func (a *Analysis) Label() string {
	if blinking, ok := a.IsBlinking(); ok && blinking {
		return "Blinking"
	}
	if d, ok := a.Direction(); ok {
		return "Looking " + d.String()
	}
	return ""
}

// Close releases the frame and eye buffers.
func (a *Analysis) Close() {
	if a == nil {
		return
	}
	a.Frame.Close()
	a.Left.Close()
	a.Right.Close()
}

// Point is a JSON friendly pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func toPoint(p image.Point) Point {
	return Point{X: p.X, Y: p.Y}
}

// Sample is an immutable snapshot of an Analysis, safe to hand to other
// goroutines. Pupil, ratio, direction and blink fields are only
// meaningful when Located is true; eye centers when FaceFound is true.
type Sample struct {
	Time       time.Time `json:"time"`
	FaceFound  bool      `json:"face_found"`
	Located    bool      `json:"located"`
	LeftPupil  Point     `json:"left_pupil"`
	RightPupil Point     `json:"right_pupil"`
	LeftEye    Point     `json:"left_eye"`
	RightEye   Point     `json:"right_eye"`
	Horizontal float64   `json:"horizontal"`
	Vertical   float64   `json:"vertical"`
	Direction  string    `json:"direction,omitempty"`
	Blinking   bool      `json:"blinking"`
}

// Sample captures the analysis as a Sample.
func (a *Analysis) Sample() Sample {
	var s Sample
	if a == nil {
		return s
	}
	s.Time = a.Time
	s.FaceFound = a.FaceFound()
	if s.FaceFound {
		s.LeftEye = toPoint(a.Left.CenterCoords())
		s.RightEye = toPoint(a.Right.CenterCoords())
	}
	s.Located = a.PupilsLocated()
	if !s.Located {
		return s
	}

	s.LeftPupil = toPoint(a.Left.PupilCoords())
	s.RightPupil = toPoint(a.Right.PupilCoords())
	s.Horizontal, _ = a.HorizontalRatio()
	s.Vertical, _ = a.VerticalRatio()
	d, _ := a.Direction()
	s.Direction = d.String()
	s.Blinking, _ = a.IsBlinking()
	return s
}
