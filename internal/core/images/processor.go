package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Dimension is a target size in pixels. A zero side is derived from the aspect ratio;
// a zero Dimension means "do not scale".
type Dimension struct {
	Width  int
	Height int
}

// IsZero reports whether no scaling was requested.
func (d Dimension) IsZero() bool {
	return d.Width <= 0 && d.Height <= 0
}

// Processor scales downloaded pictures.
type Processor interface {
	Scale(data []byte, to Dimension) ([]byte, error)
}

// ImageProcessor implements Processor with the imaging library.
type ImageProcessor struct {
	// JPEGQuality is used when re-encoding JPEG sources.
	JPEGQuality int
}

// NewProcessor creates an ImageProcessor.
func NewProcessor() *ImageProcessor {
	return &ImageProcessor{JPEGQuality: 85}
}

// Scale resizes the image to the dimension and re-encodes it. JPEG stays JPEG; every
// other source format is encoded as PNG.
func (p *ImageProcessor) Scale(data []byte, to Dimension) ([]byte, error) {
	if to.IsZero() {
		return data, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrUnsupportedFormat)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	width, height := to.Width, to.Height
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	scaled := imaging.Resize(img, width, height, imaging.Lanczos)

	out := imaging.PNG
	var opts []imaging.EncodeOption
	if format == "jpeg" {
		out = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(p.JPEGQuality))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, out, opts...); err != nil {
		return nil, fmt.Errorf("%w: failed to encode image: %v", ErrProcessingFailed, err)
	}
	return buf.Bytes(), nil
}
