package gaze

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

type fakeSource struct {
	frames []gocv.Mat
	next   int
	closed int
	err    error
}

func (s *fakeSource) Read(m *gocv.Mat) bool {
	if s.next >= len(s.frames) {
		return false
	}
	s.frames[s.next].CopyTo(m)
	s.next++
	return true
}

func (s *fakeSource) Close() error {
	s.closed++
	for _, f := range s.frames {
		f.Close()
	}
	return s.err
}

// halfFrame is dark on the left half and bright on the right.
func halfFrame() gocv.Mat {
	m := solidGray(20, 40, 255)
	gocv.Rectangle(&m, image.Rect(0, 0, 19, 19), grayColor(0), -1)
	return m
}

func newTestStream(t *testing.T, frames []gocv.Mat, opts ...StreamOption) (*Stream, *fakeSource) {
	t.Helper()
	est, err := New(&fakeDetector{}, &fakePredictor{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(est.Close)
	src := &fakeSource{frames: frames}
	s := NewStream(src, est, opts...)
	t.Cleanup(func() { s.Close() })
	return s, src
}

func TestStream_Iterates(t *testing.T) {
	s, _ := newTestStream(t, []gocv.Mat{halfFrame(), halfFrame(), halfFrame()})

	if s.Index() != 0 {
		t.Errorf("Index before Next = %d, want 0", s.Index())
	}
	n := 0
	for s.Next() {
		n++
		if s.Index() != n {
			t.Errorf("Index = %d, want %d", s.Index(), n)
		}
		if s.Analysis() == nil {
			t.Fatal("Analysis should be set after Next")
		}
		if s.Analysis().PupilsLocated() {
			t.Error("no face should yield no pupils")
		}
	}
	if n != 3 {
		t.Errorf("frames = %d, want 3", n)
	}
	if s.Next() {
		t.Error("Next after exhaustion should be false")
	}
}

func TestStream_EmptyFrameEnds(t *testing.T) {
	s, src := newTestStream(t, []gocv.Mat{halfFrame(), gocv.NewMat(), halfFrame()})

	var got []int
	for i := range s.All() {
		got = append(got, i)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("counts = %v, want [1]", got)
	}
	if s.Next() {
		t.Error("stream should stay ended")
	}
	if src.next != 2 {
		t.Errorf("source reads = %d, want 2", src.next)
	}
}

func TestStream_AllStopsEarly(t *testing.T) {
	s, _ := newTestStream(t, []gocv.Mat{halfFrame(), halfFrame(), halfFrame()})

	for i, a := range s.All() {
		if a == nil {
			t.Fatal("nil analysis")
		}
		if i == 1 {
			break
		}
	}
	if s.Index() != 1 {
		t.Errorf("Index = %d, want 1", s.Index())
	}
}

func TestStream_Flip(t *testing.T) {
	tests := []struct {
		flip bool
		want uint8
	}{
		{false, 0},
		{true, 255},
	}

	for _, tt := range tests {
		s, _ := newTestStream(t, []gocv.Mat{halfFrame()}, WithFlip(tt.flip))
		if !s.Next() {
			t.Fatal("Next returned false")
		}
		if got := s.Frame().GetUCharAt(10, 2); got != tt.want {
			t.Errorf("flip=%v: pixel = %d, want %d", tt.flip, got, tt.want)
		}
		if got := s.Analysis().Frame.GetUCharAt(10, 2); got != tt.want {
			t.Errorf("flip=%v: analyzed pixel = %d, want %d", tt.flip, got, tt.want)
		}
	}
}

func TestStream_EqualizeEachFrame(t *testing.T) {
	s, _ := newTestStream(t, []gocv.Mat{halfFrame(), halfFrame()}, WithEqualizeEachFrame(true))

	for s.Next() {
		if !s.Analysis().Equalized {
			t.Errorf("frame %d not equalized", s.Index())
		}
		if s.Estimator().EqualizeMode() != EqualizeApplied {
			t.Errorf("mode = %v, want applied", s.Estimator().EqualizeMode())
		}
	}
}

func TestStream_CloseIdempotent(t *testing.T) {
	s, src := newTestStream(t, []gocv.Mat{halfFrame()})
	src.err = errors.New("release failed")

	err1 := s.Close()
	err2 := s.Close()
	if src.closed != 1 {
		t.Errorf("source closed %d times, want 1", src.closed)
	}
	if err1 == nil || err1 != err2 {
		t.Errorf("Close errors = %v, %v; want the same error twice", err1, err2)
	}
}

func TestStream_NextAfterClose(t *testing.T) {
	s, src := newTestStream(t, []gocv.Mat{halfFrame(), halfFrame()})

	if !s.Next() {
		t.Fatal("first Next should succeed")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Next() {
		t.Error("Next after Close should return false")
	}
	if src.next != 1 {
		t.Errorf("source read %d frames, want 1", src.next)
	}
	if s.Index() != 1 {
		t.Errorf("Index() = %d, want 1", s.Index())
	}
}
