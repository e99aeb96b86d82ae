package foreground

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutout/internal/contour"
	"cutout/internal/vision"
)

func newExtractor(t *testing.T, mode contour.Mode) (*Extractor, *vision.Engine) {
	t.Helper()
	engine, err := vision.Init(vision.Options{})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Mode = mode
	return New(engine, opts, nil, nil), engine
}

// canvas returns a white w x h raster with each rect painted dark.
func canvas(w, h int, rects ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	dark := &image.Uniform{C: color.RGBA{R: 20, G: 30, B: 40, A: 255}}
	for _, r := range rects {
		draw.Draw(img, r, dark, image.Point{}, draw.Src)
	}
	return img
}

func TestExtractSingleRectangle(t *testing.T) {
	extractor, engine := newExtractor(t, contour.ModeLegacy)
	rect := image.Rect(30, 20, 90, 70)
	img := canvas(120, 100, rect)

	result, err := extractor.Extract(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, img.Bounds(), result.Crop.Bounds())
	assert.Equal(t, img.Bounds(), result.Mask.Bounds())
	assert.Equal(t, 1, result.ContourCount)
	assert.Equal(t, []int{0}, result.Selected)
	assert.Greater(t, result.Threshold, float32(0))
	assert.Less(t, result.Threshold, float32(255))

	// The blur only reaches two pixels across an edge.
	inner := rect.Inset(3)
	outerBand := rect.Inset(-3)
	for y := 0; y < 100; y++ {
		for x := 0; x < 120; x++ {
			p := image.Pt(x, y)
			m := result.Mask.GrayAt(x, y).Y
			switch {
			case p.In(inner):
				assert.Equal(t, uint8(255), m, "mask inside at %v", p)
			case !p.In(outerBand):
				assert.Equal(t, uint8(0), m, "mask outside at %v", p)
			}

			if m != 0 {
				assert.Equal(t, img.RGBAAt(x, y), result.Crop.RGBAAt(x, y), "crop at %v", p)
			} else {
				assert.Equal(t, color.RGBA{}, result.Crop.RGBAAt(x, y), "crop at %v", p)
			}
		}
	}

	assert.EqualValues(t, 0, engine.MemoryStats().ActiveMats)
}

func TestExtractUniformRaster(t *testing.T) {
	tests := []struct {
		name  string
		color color.Color
	}{
		{"white", color.White},
		{"black", color.Black},
		{"mid gray", color.RGBA{R: 128, G: 128, B: 128, A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, engine := newExtractor(t, contour.ModeLegacy)

			img := image.NewRGBA(image.Rect(0, 0, 64, 48))
			draw.Draw(img, img.Bounds(), &image.Uniform{C: tt.color}, image.Point{}, draw.Src)

			_, err := extractor.Extract(context.Background(), img)
			assert.ErrorIs(t, err, ErrNoForegroundFound)
			assert.EqualValues(t, 0, engine.MemoryStats().ActiveMats)
		})
	}
}

func TestExtractSecondaryContours(t *testing.T) {
	big := image.Rect(10, 10, 70, 70)

	tests := []struct {
		name     string
		small    image.Rectangle
		selected int
	}{
		{"large secondary kept", image.Rect(85, 15, 115, 45), 2},
		{"small secondary dropped", image.Rect(95, 80, 103, 88), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, engine := newExtractor(t, contour.ModeScanAll)
			img := canvas(130, 100, big, tt.small)

			result, err := extractor.Extract(context.Background(), img)
			require.NoError(t, err)

			assert.Equal(t, 2, result.ContourCount)
			assert.Len(t, result.Selected, tt.selected)

			center := func(r image.Rectangle) uint8 {
				c := r.Min.Add(r.Max).Div(2)
				return result.Mask.GrayAt(c.X, c.Y).Y
			}
			assert.Equal(t, uint8(255), center(big))
			if tt.selected == 2 {
				assert.Equal(t, uint8(255), center(tt.small))
			} else {
				assert.Equal(t, uint8(0), center(tt.small))
			}

			assert.EqualValues(t, 0, engine.MemoryStats().ActiveMats)
		})
	}
}

func TestExtractCancelled(t *testing.T) {
	extractor, engine := newExtractor(t, contour.ModeLegacy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extractor.Extract(ctx, canvas(32, 32, image.Rect(8, 8, 24, 24)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, engine.MemoryStats().ActiveMats)
}

func TestExtractNilImage(t *testing.T) {
	extractor, _ := newExtractor(t, contour.ModeLegacy)

	_, err := extractor.Extract(context.Background(), nil)
	assert.Error(t, err)
}
