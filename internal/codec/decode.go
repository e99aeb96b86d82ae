package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmpty is wrapped by DecodeError for zero-length input.
var ErrEmpty = errors.New("empty image data")

// DecodeError reports bytes that are not a readable image.
type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image (%d bytes): %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoded is a source image normalised to the canonical RGBA raster.
type Decoded struct {
	Image        *image.RGBA
	Format       string
	SourceBounds image.Rectangle
	Downscaled   bool
}

type DecodeOptions struct {
	// MaxDimension clamps the longest side; 0 keeps the source size.
	MaxDimension int
}

// Decode reads any registered encoding and returns a zero-origin RGBA copy.
func Decode(data []byte, opts DecodeOptions) (*Decoded, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmpty}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Size: len(data), Err: err}
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, &DecodeError{Size: len(data), Err: fmt.Errorf("image has no pixels: %v", bounds)}
	}

	decoded := &Decoded{
		Format:       determineFormat(format),
		SourceBounds: bounds,
	}

	if opts.MaxDimension > 0 && max(bounds.Dx(), bounds.Dy()) > opts.MaxDimension {
		src = resizeWithinMax(src, opts.MaxDimension)
		decoded.Downscaled = true
	}

	decoded.Image = ToRGBA(src)
	return decoded, nil
}

// ToRGBA copies img into a fresh *image.RGBA anchored at (0,0). Alpha is
// premultiplied the way image.RGBA stores it; palette and color model quirks
// of the source are flattened by the draw.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// resizeWithinMax scales so the longest side equals maxSize.
func resizeWithinMax(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

func determineFormat(stdLibFormat string) string {
	if stdLibFormat == "" {
		return "unknown"
	}
	return stdLibFormat
}
