// Package foreground isolates the dominant object of an RGBA raster.
//
// The raster is converted to gray, blurred, binarised with an inverted Otsu
// threshold (the darker class becomes foreground) and reduced to its external
// contours. contour.Select picks which contours form the mask, and the crop
// keeps origin pixels under the mask on a zeroed canvas.
package foreground

import (
	"context"
	"errors"
	"fmt"
	"image"

	"cutout/internal/contour"
	"cutout/internal/logger"
	"cutout/internal/opencv/conversion"
	"cutout/internal/processing/chain"
	"cutout/internal/processing/filters"
	"cutout/internal/vision"
)

var ErrNoForegroundFound = errors.New("no foreground contour found")

type Options struct {
	BlurKernel    int
	ThresholdSeed float64
	Ratio         float64
	Mode          contour.Mode
}

func DefaultOptions() Options {
	return Options{
		BlurKernel:    filters.DefaultKernelSize,
		ThresholdSeed: filters.DefaultThresholdSeed,
		Ratio:         contour.DefaultRatio,
		Mode:          contour.ModeLegacy,
	}
}

type Result struct {
	Crop         *image.RGBA
	Mask         *image.Gray
	Threshold    float32
	ContourCount int
	Selected     []int
	Areas        []float64
}

type Extractor struct {
	engine *vision.Engine
	opts   Options
	logger logger.Logger
	timing chain.TimingTracker
}

// New returns an Extractor bound to engine. timing may be nil.
func New(engine *vision.Engine, opts Options, log logger.Logger, timing chain.TimingTracker) *Extractor {
	if log == nil {
		log = logger.NoOp{}
	}
	return &Extractor{
		engine: engine,
		opts:   opts,
		logger: log,
		timing: timing,
	}
}

func (e *Extractor) Extract(ctx context.Context, img *image.RGBA) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	scope := e.engine.NewScope("extract")
	defer scope.Close()

	origin, err := conversion.RGBAToMat(scope, img, "origin")
	if err != nil {
		return nil, fmt.Errorf("failed to load raster: %w", err)
	}

	threshold := filters.NewOtsuInverseThreshold(e.opts.ThresholdSeed, scope.Tracker())
	steps := chain.NewProcessingChain([]chain.ProcessingStep{
		filters.NewGrayscaleConverter(scope.Tracker()),
		filters.NewGaussianFilter(e.opts.BlurKernel, scope.Tracker()),
		threshold,
	})
	steps.SetTimingTracker(e.timing)

	binary, err := steps.Execute(ctx, origin)
	if err != nil {
		return nil, err
	}
	scope.Adopt(binary)

	// An all-zero or all-255 mask separates nothing.
	nonZero, total, err := e.engine.CountNonZero(binary)
	if err != nil {
		return nil, err
	}
	if nonZero == 0 || nonZero == total {
		return nil, ErrNoForegroundFound
	}

	contours, err := e.engine.FindExternalContours(binary)
	if err != nil {
		return nil, err
	}
	scope.Release(binary)

	areas := make([]float64, len(contours))
	for i, c := range contours {
		areas[i] = c.Area
	}

	selection, err := contour.Select(areas, e.opts.Ratio, e.opts.Mode)
	if errors.Is(err, contour.ErrNoContours) {
		return nil, ErrNoForegroundFound
	}
	if err != nil {
		return nil, err
	}
	selected := selection.Indices()

	e.logger.Debug("ForegroundExtractor", "contours selected", map[string]interface{}{
		"steps":     steps.GetStepNames(),
		"threshold": threshold.Threshold(),
		"contours":  len(contours),
		"primary":   selection.Primary,
		"selected":  len(selected),
		"max_area":  selection.MaxArea,
	})

	mask, err := e.engine.FillContours(scope, origin.Rows(), origin.Cols(), contours, selected)
	if err != nil {
		return nil, fmt.Errorf("failed to build mask: %w", err)
	}

	composite, err := e.engine.CopyMasked(scope, origin, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to composite: %w", err)
	}

	crop, err := conversion.MatToRGBA(composite)
	if err != nil {
		return nil, err
	}
	maskImg, err := conversion.MatToGray(mask)
	if err != nil {
		return nil, err
	}

	return &Result{
		Crop:         crop,
		Mask:         maskImg,
		Threshold:    threshold.Threshold(),
		ContourCount: len(contours),
		Selected:     selected,
		Areas:        areas,
	}, nil
}
