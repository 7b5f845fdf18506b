package face

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// LandmarkConfig holds 68-point landmark model configuration.
//
// The model is expected to take a square BGR crop of the face scaled to
// InputSize and produce 136 floats: x,y pairs normalized to the crop.
type LandmarkConfig struct {
	ModelPath string
	InputSize int     // Square model input (default 112)
	Padding   float64 // Fraction the face box is grown by before cropping
}

// DefaultLandmarkConfig returns defaults for a PFLD-style 68-point model.
func DefaultLandmarkConfig() LandmarkConfig {
	return LandmarkConfig{
		ModelPath: "models/face_landmarks_68.onnx",
		InputSize: 112,
		Padding:   0.1,
	}
}

// Landmarker predicts 68 facial landmarks with an ONNX network.
type Landmarker struct {
	net    gocv.Net
	config LandmarkConfig
	mu     sync.Mutex
}

// NewLandmarker loads the landmark network. A missing model file is
// reported as ErrModelNotFound so callers can fail at startup.
func NewLandmarker(cfg LandmarkConfig) (*Landmarker, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ModelError{Path: cfg.ModelPath, Err: ErrModelNotFound}
		}
		return nil, &ModelError{Path: cfg.ModelPath, Err: err}
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultLandmarkConfig().InputSize
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, &ModelError{Path: cfg.ModelPath, Err: ErrModelInvalid}
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Landmarker{net: net, config: cfg}, nil
}

// PredictLandmarks runs the network on the face region of a gray frame.
func (l *Landmarker) PredictLandmarks(gray gocv.Mat, face image.Rectangle) (Landmarks, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gray.Empty() {
		return Landmarks{}, ErrEmptyImage
	}

	box := ExpandSquare(face, image.Rect(0, 0, gray.Cols(), gray.Rows()), l.config.Padding)
	if box.Empty() {
		return Landmarks{}, fmt.Errorf("landmarks: face %v outside frame", face)
	}

	region := gray.Region(box)
	defer region.Close()

	crop := gocv.NewMat()
	defer crop.Close()
	if region.Channels() == 1 {
		gocv.CvtColor(region, &crop, gocv.ColorGrayToBGR)
	} else {
		region.CopyTo(&crop)
	}

	size := l.config.InputSize
	blob := gocv.BlobFromImage(crop, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	l.net.SetInput(blob, "")
	out := l.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return Landmarks{}, fmt.Errorf("landmarks: read output: %w", err)
	}
	return DecodeLandmarks(data, box)
}

// Close releases the network.
func (l *Landmarker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.net.Close()
	return nil
}

// DecodeLandmarks maps normalized x,y pairs back into frame coordinates
// of the crop box.
func DecodeLandmarks(data []float32, box image.Rectangle) (Landmarks, error) {
	var lm Landmarks
	if len(data) < 2*NumLandmarks {
		return lm, fmt.Errorf("%w: got %d values", ErrShortOutput, len(data))
	}
	w, h := float64(box.Dx()), float64(box.Dy())
	for i := range lm {
		lm[i] = image.Point{
			X: box.Min.X + int(float64(data[2*i])*w+0.5),
			Y: box.Min.Y + int(float64(data[2*i+1])*h+0.5),
		}
	}
	return lm, nil
}

// ExpandSquare grows r into a square around its center, padded by the
// given fraction of its larger side, and clips it to bounds.
func ExpandSquare(r, bounds image.Rectangle, pad float64) image.Rectangle {
	side := max(r.Dx(), r.Dy())
	side += int(float64(side) * pad * 2)
	cx := r.Min.X + r.Dx()/2
	cy := r.Min.Y + r.Dy()/2
	sq := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
	return sq.Intersect(bounds)
}
