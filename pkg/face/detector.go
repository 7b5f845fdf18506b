package face

import "image"

// Detection represents a detected face in pixel coordinates
type Detection struct {
	Rect       image.Rectangle
	Confidence float64 // Detection confidence (0-1 for YuNet, cascade score for pigo)
}

// Center returns the center point of the detection
func (d Detection) Center() image.Point {
	return image.Point{
		X: d.Rect.Min.X + d.Rect.Dx()/2,
		Y: d.Rect.Min.Y + d.Rect.Dy()/2,
	}
}

// Area returns the area of the bounding box in pixels
func (d Detection) Area() int {
	return d.Rect.Dx() * d.Rect.Dy()
}

// Rects strips detections down to their rectangles, keeping order.
func Rects(dets []Detection) []image.Rectangle {
	if len(dets) == 0 {
		return nil
	}
	rects := make([]image.Rectangle, len(dets))
	for i, d := range dets {
		rects[i] = d.Rect
	}
	return rects
}

// Config holds YuNet detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.6)
	NMSThresh        float64 // Non-maximum suppression IoU (default 0.3)
	InputWidth       int     // Initial model input width
	InputHeight      int     // Initial model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.6,
		NMSThresh:        0.3,
		InputWidth:       320,
		InputHeight:      320,
	}
}
