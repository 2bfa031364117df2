// Package resample implements the crop-and-resize step of the fused decode
// path.
package resample

import (
	"errors"
	"fmt"

	"golang.org/x/image/draw"

	"github.com/user/vidseq/pkg/crop"
	"github.com/user/vidseq/pkg/raster"
)

var (
	// ErrLayoutMismatch is returned when source and destination differ in pixel format.
	ErrLayoutMismatch = errors.New("resample: source and destination layouts differ")

	// ErrWindowOutOfBounds is returned when the region of interest leaves the source frame.
	ErrWindowOutOfBounds = errors.New("resample: window outside source frame")
)

// CropResize scales the roi region of src to fill dst with bilinear
// interpolation. An empty roi selects the whole source.
func CropResize(dst, src *raster.Image, roi crop.Window) error {
	if dst.Format != src.Format {
		return fmt.Errorf("%w: %s into %s", ErrLayoutMismatch, src.Format, dst.Format)
	}
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	if roi.Empty() {
		roi = crop.Window{W: sw, H: sh}
	}
	if !roi.Fits(sw, sh) {
		return fmt.Errorf("%w: %v in %dx%d", ErrWindowOutOfBounds, roi, sw, sh)
	}

	sr := roi.Rect().Add(src.Rect.Min)
	if sr.Dx() == dst.Rect.Dx() && sr.Dy() == dst.Rect.Dy() {
		draw.Draw(dst, dst.Rect, src, sr.Min, draw.Src)
		return nil
	}
	draw.BiLinear.Scale(dst, dst.Rect, src, sr, draw.Src, nil)
	return nil
}
