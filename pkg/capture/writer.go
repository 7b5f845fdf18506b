package capture

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"gocv.io/x/gocv"
)

// FourCC codes accepted by NewWriter.
var FourCCs = []string{"I420", "MJPG", "MP4V", "XVID", "PIMI", "FLV1", "DIVX"}

// DefaultFourCC is used when no codec is given.
const DefaultFourCC = "XVID"

// DefaultWriterFPS is used when the source does not report a rate.
const DefaultWriterFPS = 20.0

// Writer encodes annotated frames to a video file.
type Writer struct {
	vw   *gocv.VideoWriter
	path string
	size image.Point
}

// NewWriter creates a color video file of the given frame size.
func NewWriter(path, fourcc string, fps float64, size image.Point) (*Writer, error) {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	fourcc = strings.ToUpper(fourcc)
	if !slices.Contains(FourCCs, fourcc) {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFourCC, fourcc, strings.Join(FourCCs, ", "))
	}
	if fps <= 0 {
		fps = DefaultWriterFPS
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %s: frame size %v", ErrOpenFailed, path, size)
	}

	vw, err := gocv.VideoWriterFile(path, fourcc, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpenFailed, path)
	}
	return &Writer{vw: vw, path: path, size: size}, nil
}

// Write appends a frame. Frames of the wrong size are resized.
func (w *Writer) Write(frame gocv.Mat) error {
	if frame.Empty() {
		return nil
	}
	if frame.Cols() == w.size.X && frame.Rows() == w.size.Y {
		return w.vw.Write(frame)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, w.size, 0, 0, gocv.InterpolationLinear)
	return w.vw.Write(resized)
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Close finalizes the file.
func (w *Writer) Close() error {
	return w.vw.Close()
}
