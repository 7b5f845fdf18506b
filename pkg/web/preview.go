package web

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Preview defaults.
const (
	DefaultPreviewWidth   = 640
	DefaultPreviewQuality = 75
)

// EncodePreview scales img down to at most maxWidth pixels wide, keeping
// the aspect ratio, and encodes it as JPEG. Smaller images are encoded
// as is.
func EncodePreview(img image.Image, maxWidth, quality int) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultPreviewWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultPreviewQuality
	}

	b := img.Bounds()
	if b.Dx() > maxWidth {
		h := max(1, b.Dy()*maxWidth/b.Dx())
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
