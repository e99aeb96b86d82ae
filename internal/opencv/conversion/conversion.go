package conversion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"cutout/internal/opencv/memory"
	"cutout/internal/opencv/safe"
)

// RGBAToMat copies img into a CV_8UC4 Mat owned by scope. Channel order stays
// R,G,B,A so downstream code must use the RGBA color conversion codes.
func RGBAToMat(scope *memory.Scope, img *image.RGBA, tag string) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if err := safe.ValidateDimensions(width, height, "RGBAToMat"); err != nil {
		return nil, err
	}

	pix := packedPix(img.Pix, img.Stride, width*4, height)

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from pixels: %w", err)
	}
	// NewMatFromBytes may alias pix; clone so the scope owns independent memory.
	defer mat.Close()

	safeMat, err := safe.NewMatFromMatWithTracker(mat, scope.Tracker(), scope.Name()+"/"+tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create safe Mat: %w", err)
	}

	return scope.Adopt(safeMat), nil
}

// MatToRGBA converts a CV_8UC4 Mat in R,G,B,A order back to an image.
func MatToRGBA(src *safe.Mat) (*image.RGBA, error) {
	if err := safe.ValidateChannels(src, 4, "MatToRGBA"); err != nil {
		return nil, err
	}

	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()
	if len(data) != rows*cols*4 {
		return nil, fmt.Errorf("unexpected pixel buffer size %d for %dx%d RGBA", len(data), cols, rows)
	}

	return &image.RGBA{
		Pix:    data,
		Stride: cols * 4,
		Rect:   image.Rect(0, 0, cols, rows),
	}, nil
}

// MatToGray converts a single-channel 8-bit Mat to an image.
func MatToGray(src *safe.Mat) (*image.Gray, error) {
	if err := safe.ValidateChannels(src, 1, "MatToGray"); err != nil {
		return nil, err
	}

	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()
	if len(data) != rows*cols {
		return nil, fmt.Errorf("unexpected pixel buffer size %d for %dx%d gray", len(data), cols, rows)
	}

	return &image.Gray{
		Pix:    data,
		Stride: cols,
		Rect:   image.Rect(0, 0, cols, rows),
	}, nil
}

// packedPix drops any row padding so the buffer is exactly rowBytes*rows.
func packedPix(pix []byte, stride, rowBytes, rows int) []byte {
	if stride == rowBytes && len(pix) == rowBytes*rows {
		return pix
	}

	packed := make([]byte, rowBytes*rows)
	for y := 0; y < rows; y++ {
		copy(packed[y*rowBytes:(y+1)*rowBytes], pix[y*stride:y*stride+rowBytes])
	}
	return packed
}
