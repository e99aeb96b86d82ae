package filters

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"cutout/internal/opencv/safe"
)

const DefaultKernelSize = 5

// GaussianFilter smooths with a square kernel; sigma is derived from the
// kernel size by OpenCV (sigma 0).
type GaussianFilter struct {
	kernelSize int
	tracker    safe.MemoryTracker
}

func NewGaussianFilter(kernelSize int, tracker safe.MemoryTracker) *GaussianFilter {
	if kernelSize <= 0 {
		kernelSize = DefaultKernelSize
	}
	return &GaussianFilter{kernelSize: kernelSize, tracker: tracker}
}

func (g *GaussianFilter) Name() string {
	return "gaussian_blur"
}

func (g *GaussianFilter) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, g.Name()); err != nil {
		return nil, err
	}

	if g.kernelSize%2 == 0 {
		return nil, fmt.Errorf("gaussian kernel size must be odd, got %d", g.kernelSize)
	}

	dst, err := safe.NewMatWithTracker(input.Rows(), input.Cols(), input.Type(), g.tracker, g.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	srcMat := input.GetMat()
	dstMat := dst.GetMat()

	gocv.GaussianBlur(srcMat, &dstMat, image.Point{X: g.kernelSize, Y: g.kernelSize}, 0, 0, gocv.BorderDefault)

	return dst, nil
}
