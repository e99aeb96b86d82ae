package pipeline

import (
	"context"
	"image"

	"cutout/internal/foreground"
)

// Fetcher retrieves the raw bytes of one image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor separates the foreground of a decoded raster.
type Extractor interface {
	Extract(ctx context.Context, img *image.RGBA) (*foreground.Result, error)
}

// Writer persists the origin and crop of one record.
type Writer interface {
	WriteOrigin(name string, img image.Image) (string, error)
	WriteCrop(name string, img image.Image) (string, error)
}
