package gaze

import (
	"image"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

func TestLocatePupil_EmptyFrame(t *testing.T) {
	eye := gocv.NewMat()
	defer eye.Close()

	p := LocatePupil(eye, 50)
	if p.Located {
		t.Errorf("empty frame: got located pupil %+v", p)
	}
}

func TestLocatePupil_UniformFrame(t *testing.T) {
	eye := solidGray(40, 60, 255)
	defer eye.Close()

	for th := 5; th <= 100; th += 5 {
		p := LocatePupil(eye, th)
		if p.Located {
			t.Errorf("threshold %d: got located pupil %+v", th, p)
		}
		if p.X != 30 || p.Y != 20 {
			t.Errorf("threshold %d: sentinel = (%v,%v), want (30,20)", th, p.X, p.Y)
		}
	}
}

func TestLocatePupil_DarkDisk(t *testing.T) {
	eye := solidGray(40, 60, 230)
	defer eye.Close()
	gocv.Circle(&eye, image.Pt(30, 20), 8, grayColor(20), -1)

	p := LocatePupil(eye, 50)
	if !p.Located {
		t.Fatal("expected pupil to be located")
	}
	if math.Abs(p.X-30) > 1.5 || math.Abs(p.Y-20) > 1.5 {
		t.Errorf("centroid = (%.2f,%.2f), want near (30,20)", p.X, p.Y)
	}
	if p.Area <= 0 {
		t.Errorf("area = %v, want > 0", p.Area)
	}
}

func TestLocatePupil_LargestBlobWins(t *testing.T) {
	eye := solidGray(40, 80, 230)
	defer eye.Close()
	gocv.Circle(&eye, image.Pt(15, 20), 5, grayColor(20), -1)
	gocv.Circle(&eye, image.Pt(55, 20), 10, grayColor(20), -1)

	p := LocatePupil(eye, 50)
	if !p.Located {
		t.Fatal("expected pupil to be located")
	}
	if math.Abs(p.X-55) > 1.5 {
		t.Errorf("centroid x = %.2f, want near 55", p.X)
	}
}

func TestLocatePupil_AreaGrowsWithThreshold(t *testing.T) {
	eye := solidGray(60, 60, 230)
	defer eye.Close()
	// Radial gradient: darker toward the center.
	for r := 20; r >= 0; r-- {
		gocv.Circle(&eye, image.Pt(30, 30), r, grayColor(uint8(20+r*8)), -1)
	}

	prev := 0.0
	for th := 30; th <= 180; th += 10 {
		p := LocatePupil(eye, th)
		if !p.Located {
			if prev > 0 {
				t.Errorf("threshold %d: lost pupil after it was located", th)
			}
			continue
		}
		if p.Area < prev {
			t.Errorf("threshold %d: area %.1f shrank from %.1f", th, p.Area, prev)
		}
		prev = p.Area
	}
	if prev == 0 {
		t.Error("pupil never located")
	}
}

func TestProcessEye_Binary(t *testing.T) {
	eye := solidGray(30, 30, 200)
	defer eye.Close()
	gocv.Rectangle(&eye, image.Rect(0, 0, 29, 14), grayColor(10), -1)

	out := ProcessEye(eye, 50)
	defer out.Close()

	if out.Rows() != 30 || out.Cols() != 30 {
		t.Fatalf("size = %dx%d, want 30x30", out.Cols(), out.Rows())
	}
	if got := out.GetUCharAt(7, 15); got != 255 {
		t.Errorf("dark pixel = %d, want 255", got)
	}
	if got := out.GetUCharAt(25, 15); got != 0 {
		t.Errorf("bright pixel = %d, want 0", got)
	}
}
