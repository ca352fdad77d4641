// Package imaging converts uploaded reference images into the canonical form
// providers accept: baseline JPEG, longest edge capped, metadata stripped.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"adstudio/internal/domain"
)

// MaxEdge is the longest edge allowed on a normalized image. Larger uploads
// are scaled down; smaller ones are never scaled up.
const MaxEdge = 1920

const jpegQuality = 90

// RawImage is an uploaded image before normalization.
type RawImage struct {
	Data []byte
	MIME string
}

// CanonicalImage is the provider-ready form of an upload.
type CanonicalImage struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Normalize decodes, bounds, and re-encodes an upload. Re-encoding through a
// fresh pixel buffer drops EXIF and all other metadata. Any failure wraps
// domain.ErrImageProcessing so the pipeline classifies it uniformly.
func Normalize(raw RawImage) (*CanonicalImage, error) {
	src, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrImageProcessing, raw.MIME, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrImageProcessing)
	}

	outW, outH := fitWithin(width, height, MaxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", domain.ErrImageProcessing, err)
	}

	return &CanonicalImage{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  outW,
		Height: outH,
	}, nil
}

func decode(raw RawImage) (image.Image, error) {
	r := bytes.NewReader(raw.Data)
	switch raw.MIME {
	case "image/jpeg", "image/jpg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/gif":
		return gif.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	default:
		// Unknown MIME from the client; let the sniffer decide.
		img, _, err := image.Decode(r)
		return img, err
	}
}

// fitWithin scales (w, h) so the longest edge is at most maxEdge, preserving
// aspect ratio. Images already within bounds keep their dimensions.
func fitWithin(w, h, maxEdge int) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(longest)
	outW := int(float64(w)*scale + 0.5)
	outH := int(float64(h)*scale + 0.5)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}
