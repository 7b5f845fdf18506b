package face

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	bgr      gocv.Mat
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	// Check if model file exists first
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ModelError{Path: cfg.ModelPath, Err: ErrModelNotFound}
		}
		return nil, &ModelError{Path: cfg.ModelPath, Err: err}
	}

	// Create FaceDetectorYN with initial size (will be updated per-image)
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",                                        // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight), // Initial input size
		float32(cfg.ConfidenceThresh),             // Score threshold
		float32(cfg.NMSThresh),                    // NMS threshold
		5000,                                      // Top K
		int(gocv.NetBackendDefault),               // Backend
		int(gocv.NetTargetCPU),                    // Target
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
		bgr:      gocv.NewMat(),
	}, nil
}

// Detect finds faces in the frame. Gray frames are expanded to BGR first
// since the network expects three channels. Results keep model order,
// which is by descending score.
func (d *YuNetDetector) Detect(img gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	src := img
	if img.Channels() == 1 {
		gocv.CvtColor(img, &d.bgr, gocv.ColorGrayToBGR)
		src = d.bgr
	}

	// Update detector input size to match image
	d.detector.SetInputSize(image.Pt(src.Cols(), src.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(src, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	var detections []Detection
	for r := 0; r < faces.Rows(); r++ {
		x := int(faces.GetFloatAt(r, 0))
		y := int(faces.GetFloatAt(r, 1))
		w := int(faces.GetFloatAt(r, 2))
		h := int(faces.GetFloatAt(r, 3))
		rect := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
		if rect.Empty() {
			continue
		}
		detections = append(detections, Detection{
			Rect:       rect,
			Confidence: float64(faces.GetFloatAt(r, 14)),
		})
	}

	if len(detections) > 0 {
		debug.Track("yunet faces", "count", len(detections))
	}

	return detections, nil
}

// DetectFaces returns the face rectangles found in a gray frame.
func (d *YuNetDetector) DetectFaces(gray gocv.Mat) ([]image.Rectangle, error) {
	dets, err := d.Detect(gray)
	if err != nil {
		return nil, fmt.Errorf("yunet: %w", err)
	}
	return Rects(dets), nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	d.bgr.Close()
	return nil
}
