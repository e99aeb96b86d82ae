package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255}
			if (x+y)%2 == 0 {
				c = color.NRGBA{R: 20, G: 30, B: 40, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodeWith(t *testing.T, enc func(*bytes.Buffer) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, enc(&buf))
	return buf.Bytes()
}

func TestDecode_Formats(t *testing.T) {
	src := checker(12, 7)

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{name: "png", format: "png", data: encodeWith(t, func(b *bytes.Buffer) error { return png.Encode(b, src) })},
		{name: "jpeg", format: "jpeg", data: encodeWith(t, func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) })},
		{name: "gif", format: "gif", data: encodeWith(t, func(b *bytes.Buffer) error { return gif.Encode(b, src, nil) })},
		{name: "bmp", format: "bmp", data: encodeWith(t, func(b *bytes.Buffer) error { return bmp.Encode(b, src) })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, DecodeOptions{})
			require.NoError(t, err)

			assert.Equal(t, tt.format, got.Format)
			assert.Equal(t, image.Rect(0, 0, 12, 7), got.Image.Bounds())
			assert.Equal(t, src.Bounds(), got.SourceBounds)
			assert.False(t, got.Downscaled)
		})
	}
}

func TestDecode_LosslessPixelsPreserved(t *testing.T) {
	src := checker(5, 5)
	data := encodeWith(t, func(b *bytes.Buffer) error { return png.Encode(b, src) })

	got, err := Decode(data, DecodeOptions{})
	require.NoError(t, err)

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			want := src.NRGBAAt(x, y)
			assert.Equal(t, color.RGBA{R: want.R, G: want.G, B: want.B, A: 255}, got.Image.RGBAAt(x, y))
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	valid := encodeWith(t, func(b *bytes.Buffer) error { return png.Encode(b, checker(8, 8)) })

	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "zero length", data: []byte{}},
		{name: "garbage", data: []byte("definitely not an image")},
		{name: "truncated png", data: valid[:len(valid)/2]},
		{name: "header only", data: valid[:8]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, DecodeOptions{})
			assert.Nil(t, got)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
		})
	}

	_, err := Decode(nil, DecodeOptions{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDecode_MaxDimension(t *testing.T) {
	data := encodeWith(t, func(b *bytes.Buffer) error { return png.Encode(b, checker(200, 100)) })

	got, err := Decode(data, DecodeOptions{MaxDimension: 50})
	require.NoError(t, err)

	assert.True(t, got.Downscaled)
	assert.Equal(t, 50, got.Image.Bounds().Dx())
	assert.Equal(t, 25, got.Image.Bounds().Dy())
	assert.Equal(t, image.Rect(0, 0, 200, 100), got.SourceBounds)

	small, err := Decode(data, DecodeOptions{MaxDimension: 400})
	require.NoError(t, err)
	assert.False(t, small.Downscaled)
	assert.Equal(t, 200, small.Image.Bounds().Dx())
}

func TestToRGBA_ShiftsOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 14, 23))
	src.SetRGBA(10, 20, color.RGBA{R: 9, A: 255})

	got := ToRGBA(src)

	assert.Equal(t, image.Rect(0, 0, 4, 3), got.Bounds())
	assert.Equal(t, color.RGBA{R: 9, A: 255}, got.RGBAAt(0, 0))
}

func TestEncode_PNGRoundTrip(t *testing.T) {
	src := ToRGBA(checker(9, 4))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, "png", EncodeOptions{}))

	got, err := Decode(buf.Bytes(), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Image.Bounds())
	assert.Equal(t, src.Pix, got.Image.Pix)
}

func TestEncode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, checker(16, 16), "jpg", EncodeOptions{JPEGQuality: 80}))

	cfg, format, err := image.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 16, cfg.Width)
}

func TestEncode_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, checker(2, 2), "tiff", EncodeOptions{}))
	assert.Error(t, Encode(&buf, nil, "png", EncodeOptions{}))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", Extension("jpeg"))
	assert.Equal(t, "jpg", Extension(".JPG"))
	assert.Equal(t, "png", Extension("png"))
}
