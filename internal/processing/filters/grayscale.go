package filters

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"cutout/internal/opencv/safe"
)

// GrayscaleConverter reduces an RGBA raster to one luma channel.
type GrayscaleConverter struct {
	tracker safe.MemoryTracker
}

func NewGrayscaleConverter(tracker safe.MemoryTracker) *GrayscaleConverter {
	return &GrayscaleConverter{tracker: tracker}
}

func (g *GrayscaleConverter) Name() string {
	return "grayscale"
}

func (g *GrayscaleConverter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, g.Name()); err != nil {
		return nil, err
	}
	if err := safe.ValidateMatType(input.Type(), g.Name()); err != nil {
		return nil, err
	}

	if input.Channels() == 1 {
		return input.Clone()
	}

	return g.convertToGrayscale(input)
}

func (g *GrayscaleConverter) convertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	var code gocv.ColorConversionCode
	switch src.Channels() {
	case 4:
		code = gocv.ColorRGBAToGray
	case 3:
		code = gocv.ColorRGBToGray
	default:
		return nil, fmt.Errorf("unsupported channel count for grayscale conversion: %d", src.Channels())
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, g.tracker, g.Name())
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.CvtColor(srcMat, &dstMat, code)

	return dst, nil
}
