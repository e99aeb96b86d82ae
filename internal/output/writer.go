package output

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"cutout/internal/codec"
)

const (
	OriginSuffix = "-origin"
	CropSuffix   = "-crop"
)

// WriteError reports a failure to create, encode or flush an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer persists results as flat files in one directory. Names are used as
// given and the directory must already exist.
type Writer struct {
	dir         string
	jpegQuality int
}

func NewWriter(dir string, jpegQuality int) *Writer {
	if dir == "" {
		dir = "."
	}
	if jpegQuality <= 0 {
		jpegQuality = codec.DefaultJPEGQuality
	}
	return &Writer{dir: dir, jpegQuality: jpegQuality}
}

func (w *Writer) Dir() string {
	return w.dir
}

// OriginPath returns <dir>/<name>-origin.png.
func (w *Writer) OriginPath(name string) string {
	return filepath.Join(w.dir, name+OriginSuffix+"."+codec.Extension(codec.FormatPNG))
}

// CropPath returns <dir>/<name>-crop.jpg.
func (w *Writer) CropPath(name string) string {
	return filepath.Join(w.dir, name+CropSuffix+"."+codec.Extension(codec.FormatJPEG))
}

// WriteOrigin encodes img losslessly and returns the written path.
func (w *Writer) WriteOrigin(name string, img image.Image) (string, error) {
	path := w.OriginPath(name)
	return path, w.write(path, img, codec.FormatPNG)
}

// WriteCrop encodes img as JPEG and returns the written path.
func (w *Writer) WriteCrop(name string, img image.Image) (string, error) {
	path := w.CropPath(name)
	return path, w.write(path, img, codec.FormatJPEG)
}

func (w *Writer) write(path string, img image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	buf := bufio.NewWriter(f)
	if err := codec.Encode(buf, img, format, codec.EncodeOptions{JPEGQuality: w.jpegQuality}); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: fmt.Errorf("encode %s: %w", format, err)}
	}

	if err := buf.Flush(); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}

	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	return nil
}
