package gaze

import (
	"iter"
	"sync"

	"gocv.io/x/gocv"
)

// FrameSource produces color frames. *gocv.VideoCapture satisfies it.
type FrameSource interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithFlip mirrors each frame horizontally before analysis.
func WithFlip(flip bool) StreamOption {
	return func(s *Stream) {
		s.flip = flip
	}
}

// WithEqualizeEachFrame re-arms equalization before every frame instead
// of equalizing only once.
func WithEqualizeEachFrame(on bool) StreamOption {
	return func(s *Stream) {
		s.equalizeEach = on
	}
}

// Stream pulls frames from a source and feeds them to an Estimator.
type Stream struct {
	src          FrameSource
	est          *Estimator
	frame        gocv.Mat
	index        int
	done         bool
	flip         bool
	equalizeEach bool
	closeOnce    sync.Once
	closeErr     error
}

// NewStream wraps src. The stream owns src and closes it on Close; the
// estimator stays owned by the caller.
func NewStream(src FrameSource, est *Estimator, opts ...StreamOption) *Stream {
	s := &Stream{
		src:   src,
		est:   est,
		frame: gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next reads and analyzes the next frame. A failed read or an empty
// frame ends the stream; Next keeps returning false after that.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	if !s.src.Read(&s.frame) || s.frame.Empty() {
		s.done = true
		return false
	}
	if s.flip {
		gocv.Flip(s.frame, &s.frame, 1)
	}
	if s.equalizeEach {
		s.est.ArmEqualization()
	}
	if err := s.est.Refresh(s.frame); err != nil {
		s.done = true
		return false
	}
	s.index++
	return true
}

// Frame returns the last raw frame read (after flipping).
func (s *Stream) Frame() gocv.Mat {
	return s.frame
}

// Analysis returns the analysis of the last frame.
func (s *Stream) Analysis() *Analysis {
	return s.est.Analysis()
}

// Index returns the number of frames analyzed so far.
func (s *Stream) Index() int {
	return s.index
}

// Estimator returns the underlying estimator.
func (s *Stream) Estimator() *Estimator {
	return s.est
}

// All iterates over the remaining frames, yielding the frame count and
// its analysis. The Analysis is only valid until the next iteration.
func (s *Stream) All() iter.Seq2[int, *Analysis] {
	return func(yield func(int, *Analysis) bool) {
		for s.Next() {
			if !yield(s.index, s.est.Analysis()) {
				return
			}
		}
	}
}

// Close releases the source and the frame buffer and ends the stream.
// It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		s.closeErr = s.src.Close()
		s.frame.Close()
	})
	return s.closeErr
}
