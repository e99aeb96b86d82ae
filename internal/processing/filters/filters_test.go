package filters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"cutout/internal/opencv/memory"
	"cutout/internal/opencv/safe"
)

func filled(t *testing.T, scope *memory.Scope, rows, cols int, matType gocv.MatType, v float64) *safe.Mat {
	t.Helper()
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 255), rows, cols, matType)
	defer src.Close()

	mat, err := safe.NewMatFromMatWithTracker(src, scope.Tracker(), "filled")
	require.NoError(t, err)
	return scope.Adopt(mat)
}

func TestGrayscale(t *testing.T) {
	scope := memory.NewManager(nil).NewScope("gray")
	defer scope.Close()

	g := NewGrayscaleConverter(scope.Tracker())
	assert.Equal(t, "grayscale", g.Name())

	out, err := g.Apply(context.Background(), filled(t, scope, 6, 8, gocv.MatTypeCV8UC4, 200))
	require.NoError(t, err)
	scope.Adopt(out)

	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 6, out.Rows())
	assert.Equal(t, 8, out.Cols())
	v, err := out.GetUCharAt(3, 3)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), v)

	single, err := g.Apply(context.Background(), out)
	require.NoError(t, err)
	scope.Adopt(single)
	assert.Equal(t, 1, single.Channels())

	_, err = g.Apply(context.Background(), nil)
	assert.Error(t, err)
}

func TestGrayscaleRejectsNon8BitInput(t *testing.T) {
	scope := memory.NewManager(nil).NewScope("gray-float")
	defer scope.Close()

	float, err := scope.NewZeroMat(4, 4, gocv.MatTypeCV32FC1, "float")
	require.NoError(t, err)

	_, err = NewGrayscaleConverter(scope.Tracker()).Apply(context.Background(), float)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported MatType")
}

func TestGaussianKeepsUniformValues(t *testing.T) {
	scope := memory.NewManager(nil).NewScope("blur")
	defer scope.Close()

	g := NewGaussianFilter(0, scope.Tracker())
	assert.Equal(t, "gaussian_blur", g.Name())

	out, err := g.Apply(context.Background(), filled(t, scope, 10, 10, gocv.MatTypeCV8UC1, 77))
	require.NoError(t, err)
	scope.Adopt(out)

	v, err := out.GetUCharAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(77), v)

	_, err = NewGaussianFilter(4, scope.Tracker()).Apply(context.Background(), out)
	assert.Error(t, err)
}

func TestOtsuInverseThreshold(t *testing.T) {
	scope := memory.NewManager(nil).NewScope("otsu")
	defer scope.Close()

	gray, err := scope.NewZeroMat(10, 10, gocv.MatTypeCV8UC1, "gray")
	require.NoError(t, err)
	mat := gray.GetMat()
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			mat.SetUCharAt(y, x, 200)
		}
	}

	th := NewOtsuInverseThreshold(DefaultThresholdSeed, scope.Tracker())
	assert.Equal(t, "otsu_threshold", th.Name())

	out, err := th.Apply(context.Background(), gray)
	require.NoError(t, err)
	scope.Adopt(out)

	assert.GreaterOrEqual(t, th.Threshold(), float32(0))
	assert.Less(t, th.Threshold(), float32(200))

	dark, err := out.GetUCharAt(0, 0)
	require.NoError(t, err)
	bright, err := out.GetUCharAt(0, 9)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), dark)
	assert.Equal(t, uint8(0), bright)

	_, err = th.Apply(context.Background(), filled(t, scope, 4, 4, gocv.MatTypeCV8UC4, 0))
	assert.Error(t, err)
}
