// Package vision is the explicit handle to the OpenCV runtime. Every OpenCV
// call the extractor makes goes through an *Engine obtained from Init.
package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"cutout/internal/logger"
	"cutout/internal/opencv/memory"
	"cutout/internal/opencv/safe"
)

type Options struct {
	// Threads sets OpenCV's worker thread count; 0 keeps OpenCV's default.
	Threads int
	Logger  logger.Logger
}

// Engine is safe to share but the pipeline uses it from one goroutine.
type Engine struct {
	memory        *memory.Manager
	logger        logger.Logger
	gocvVersion   string
	opencvVersion string
}

// Init brings the OpenCV runtime up once and proves it can allocate and run
// a trivial operation before any record is processed.
func Init(opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NoOp{}
	}

	if opts.Threads < 0 {
		return nil, fmt.Errorf("invalid OpenCV thread count %d", opts.Threads)
	}
	if opts.Threads > 0 {
		gocv.SetNumThreads(opts.Threads)
	}

	e := &Engine{
		memory:        memory.NewManager(log),
		logger:        log,
		gocvVersion:   gocv.Version(),
		opencvVersion: gocv.OpenCVVersion(),
	}

	if err := e.selfCheck(); err != nil {
		return nil, fmt.Errorf("opencv runtime check failed: %w", err)
	}

	log.Info("VisionEngine", "opencv runtime ready", map[string]interface{}{
		"gocv_version":   e.gocvVersion,
		"opencv_version": e.opencvVersion,
		"threads":        opts.Threads,
	})

	return e, nil
}

func (e *Engine) selfCheck() error {
	scope := e.NewScope("init")
	defer scope.Close()

	probe, err := scope.NewZeroMat(2, 2, gocv.MatTypeCV8UC1, "probe")
	if err != nil {
		return err
	}

	if n := gocv.CountNonZero(probe.GetMat()); n != 0 {
		return fmt.Errorf("zero Mat reports %d non-zero elements", n)
	}
	return nil
}

func (e *Engine) NewScope(name string) *memory.Scope {
	return e.memory.NewScope(name)
}

// MemoryStats reports Mat accounting since Init.
func (e *Engine) MemoryStats() memory.Stats {
	return e.memory.GetStats()
}

func (e *Engine) Tracker() safe.MemoryTracker {
	return e.memory
}

func (e *Engine) Versions() (gocvVersion, opencvVersion string) {
	return e.gocvVersion, e.opencvVersion
}

// CountNonZero returns the number of non-zero elements of a single-channel
// Mat together with its total element count.
func (e *Engine) CountNonZero(binary *safe.Mat) (nonZero, total int, err error) {
	if err := safe.ValidateChannels(binary, 1, "CountNonZero"); err != nil {
		return 0, 0, err
	}

	return gocv.CountNonZero(binary.GetMat()), binary.Rows() * binary.Cols(), nil
}

// Contour is one external outline and its polygon area.
type Contour struct {
	Points []image.Point
	Area   float64
}

// FindExternalContours returns the outer contours of a binary Mat using
// simple chain approximation. Nested contours are not reported.
func (e *Engine) FindExternalContours(binary *safe.Mat) ([]Contour, error) {
	if err := safe.ValidateChannels(binary, 1, "FindExternalContours"); err != nil {
		return nil, err
	}

	found := gocv.FindContours(binary.GetMat(), gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]Contour, found.Size())
	for i := 0; i < found.Size(); i++ {
		pv := found.At(i)
		contours[i] = Contour{
			Points: pv.ToPoints(),
			Area:   gocv.ContourArea(pv),
		}
	}

	return contours, nil
}

// FillContours draws the contours at indices as solid 255 regions on a zeroed
// rows x cols single-channel mask owned by scope.
func (e *Engine) FillContours(scope *memory.Scope, rows, cols int, contours []Contour, indices []int) (*safe.Mat, error) {
	mask, err := scope.NewZeroMat(rows, cols, gocv.MatTypeCV8UC1, "mask")
	if err != nil {
		return nil, fmt.Errorf("failed to create mask: %w", err)
	}

	if len(indices) == 0 {
		return mask, nil
	}

	points := make([][]image.Point, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(contours) {
			return nil, fmt.Errorf("contour index %d out of range [0, %d)", idx, len(contours))
		}
		points = append(points, contours[idx].Points)
	}

	pv := gocv.NewPointsVectorFromPoints(points)
	defer pv.Close()

	maskMat := mask.GetMat()
	gocv.DrawContours(&maskMat, pv, -1, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	return mask, nil
}

// CopyMasked returns a zero-initialised copy of src in which only pixels
// under a non-zero mask value carry src's data.
func (e *Engine) CopyMasked(scope *memory.Scope, src, mask *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "CopyMasked"); err != nil {
		return nil, err
	}
	if err := safe.ValidateChannels(mask, 1, "CopyMasked"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(src, mask, "CopyMasked"); err != nil {
		return nil, err
	}

	dst, err := scope.NewZeroMat(src.Rows(), src.Cols(), src.Type(), "composite")
	if err != nil {
		return nil, fmt.Errorf("failed to create composite: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	srcMat.CopyToWithMask(&dstMat, mask.GetMat())

	return dst, nil
}
