package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// VideoSource reads frames from a camera or a video file.
type VideoSource struct {
	vc   *gocv.VideoCapture
	name string
}

// Open opens the camera or file named by cfg.Device and applies the
// requested size and rate.
func Open(cfg Config) (*VideoSource, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	var device any = cfg.Device
	if id, ok := cfg.cameraIndex(); ok {
		device = id
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpenFailed, cfg.Device)
	}

	if cfg.IsCamera() {
		if cfg.Width > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		}
		if cfg.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		}
		if cfg.FPS > 0 {
			vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
		}
	}

	return &VideoSource{vc: vc, name: cfg.Device}, nil
}

// Read grabs the next frame into m.
func (s *VideoSource) Read(m *gocv.Mat) bool {
	return s.vc.Read(m)
}

// FPS returns the source frame rate, or 0 when unknown.
func (s *VideoSource) FPS() float64 {
	return s.vc.Get(gocv.VideoCaptureFPS)
}

// Size returns the frame size reported by the source.
func (s *VideoSource) Size() image.Point {
	return image.Pt(
		int(s.vc.Get(gocv.VideoCaptureFrameWidth)),
		int(s.vc.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Name returns the device or path the source was opened with.
func (s *VideoSource) Name() string {
	return s.name
}

// Close releases the device.
func (s *VideoSource) Close() error {
	return s.vc.Close()
}

// ImageSource yields a single still image, then ends.
type ImageSource struct {
	img  gocv.Mat
	name string
	read bool
}

// OpenImage loads a color image from path.
func OpenImage(path string) (*ImageSource, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpenFailed, path)
	}
	return &ImageSource{img: img, name: path}, nil
}

// Read copies the image into m the first time and reports false after.
func (s *ImageSource) Read(m *gocv.Mat) bool {
	if s.read || s.img.Empty() {
		return false
	}
	s.img.CopyTo(m)
	s.read = true
	return true
}

// FPS returns 0; a still image has no rate.
func (s *ImageSource) FPS() float64 {
	return 0
}

// Size returns the image size.
func (s *ImageSource) Size() image.Point {
	return image.Pt(s.img.Cols(), s.img.Rows())
}

// Name returns the image path.
func (s *ImageSource) Name() string {
	return s.name
}

// Close releases the image.
func (s *ImageSource) Close() error {
	return s.img.Close()
}
