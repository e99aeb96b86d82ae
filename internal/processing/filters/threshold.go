package filters

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"cutout/internal/opencv/safe"
)

const DefaultThresholdSeed = 120

// OtsuInverseThreshold binarises a gray Mat: pixels at or below the Otsu cut
// become 255, the rest 0. The seed is passed to OpenCV but Otsu replaces it.
// One instance per extraction; it remembers the last computed cut.
type OtsuInverseThreshold struct {
	seed     float32
	computed float32
	tracker  safe.MemoryTracker
}

func NewOtsuInverseThreshold(seed float64, tracker safe.MemoryTracker) *OtsuInverseThreshold {
	return &OtsuInverseThreshold{seed: float32(seed), tracker: tracker}
}

func (o *OtsuInverseThreshold) Name() string {
	return "otsu_threshold"
}

// Threshold returns the cut chosen by the last Apply.
func (o *OtsuInverseThreshold) Threshold() float32 {
	return o.computed
}

func (o *OtsuInverseThreshold) Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateChannels(input, 1, o.Name()); err != nil {
		return nil, err
	}
	if input.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("otsu threshold requires an 8-bit single channel Mat, got type %d", int(input.Type()))
	}

	dst, err := safe.NewMatWithTracker(input.Rows(), input.Cols(), gocv.MatTypeCV8UC1, o.tracker, o.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	srcMat := input.GetMat()
	dstMat := dst.GetMat()

	o.computed = gocv.Threshold(srcMat, &dstMat, o.seed, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	return dst, nil
}
