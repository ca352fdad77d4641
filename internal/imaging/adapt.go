package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"adstudio/internal/domain"
)

// CropSquare produces a centered 1:1 crop of a JPEG, for feed placements
// that need a square preview of a non-square render.
func CropSquare(data []byte) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrImageProcessing, err)
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrImageProcessing)
	}

	edge := w
	if h < edge {
		edge = h
	}
	x0 := bounds.Min.X + (w-edge)/2
	y0 := bounds.Min.Y + (h-edge)/2
	crop := image.Rect(x0, y0, x0+edge, y0+edge)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	sub, ok := src.(subImager)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %T", domain.ErrImageProcessing, src)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sub.SubImage(crop), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrImageProcessing, err)
	}
	return buf.Bytes(), nil
}
