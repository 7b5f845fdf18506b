package gaze

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Image processing applied to an eye frame before thresholding.
const (
	blurDiameter    = 10
	blurSigma       = 15
	erodeKernelSize = 3
	erodeIterations = 3
)

// Pupil is the result of locating a pupil inside an eye frame.
//
// X and Y are in eye-frame coordinates. When Located is false they hold the
// frame center and must not be treated as a measurement.
type Pupil struct {
	X, Y    float64
	Area    float64 // Contour area of the pupil blob in pixels
	Located bool
}

// ProcessEye isolates the iris in a gray eye frame. The frame is smoothed
// with an edge preserving filter, pixels at or below threshold become
// foreground (255), and the result is eroded to strip eyelashes and
// specks. The caller owns the returned Mat.
func ProcessEye(eye gocv.Mat, threshold int) gocv.Mat {
	out := gocv.NewMat()
	if eye.Empty() {
		return out
	}

	gocv.BilateralFilter(eye, &out, blurDiameter, blurSigma, blurSigma)
	gocv.Threshold(out, &out, float32(threshold), 255, gocv.ThresholdBinaryInv)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(erodeKernelSize, erodeKernelSize))
	defer kernel.Close()
	for i := 0; i < erodeIterations; i++ {
		gocv.Erode(out, &out, kernel)
	}
	return out
}

// LocatePupil finds the pupil in a gray eye frame binarized at threshold.
// The largest external contour wins (the first one found on ties) and the
// pupil is the centroid of its filled area. It never fails: without a
// usable contour the frame center is returned with Located unset.
func LocatePupil(eye gocv.Mat, threshold int) Pupil {
	sentinel := Pupil{X: float64(eye.Cols()) / 2, Y: float64(eye.Rows()) / 2}
	if eye.Empty() {
		return sentinel
	}

	processed := ProcessEye(eye, threshold)
	defer processed.Close()

	return largestBlob(processed, sentinel)
}

// largestBlob returns the centroid of the largest foreground contour of a
// binary mask, or sentinel if there is none.
func largestBlob(mask gocv.Mat, sentinel Pupil) Pupil {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return sentinel
	}

	filled := gocv.Zeros(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, best, color.RGBA{255, 255, 255, 255}, -1)

	m := gocv.Moments(filled, true)
	if m["m00"] == 0 {
		return sentinel
	}
	x, y := m["m10"]/m["m00"], m["m01"]/m["m00"]
	if x <= 0 || y <= 0 {
		return sentinel
	}

	return Pupil{X: x, Y: y, Area: bestArea, Located: true}
}
