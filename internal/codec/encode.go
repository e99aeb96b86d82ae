package codec

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

const DefaultJPEGQuality = 95

type EncodeOptions struct {
	JPEGQuality int
}

// Encode writes img to w in format. Only PNG and JPEG are produced.
func Encode(w io.Writer, img image.Image, format string, opts EncodeOptions) error {
	if img == nil {
		return fmt.Errorf("no image data to encode")
	}

	switch normalizeFormat(format) {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// Extension returns the file extension, without the dot, used for format.
func Extension(format string) string {
	switch normalizeFormat(format) {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	default:
		return strings.ToLower(format)
	}
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	default:
		return strings.ToLower(format)
	}
}
