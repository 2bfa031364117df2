package seqdecode

import (
	"fmt"
	"image"

	"github.com/user/vidseq/pkg/raster"
)

// copyFrame copies a frame already in the output layout row by row.
func copyFrame(slot []byte, img image.Image, l layout) error {
	b := img.Bounds()
	if b.Dx() != l.width || b.Dy() != l.height {
		return fmt.Errorf("frame is %dx%d, expected %dx%d", b.Dx(), b.Dy(), l.width, l.height)
	}

	switch src := img.(type) {
	case *image.YCbCr:
		if l.format != raster.FormatYUV420P || src.SubsampleRatio != image.YCbCrSubsampleRatio420 {
			break
		}
		cw, ch := (l.width+1)/2, raster.ChromaRows(l.height)
		cs := raster.ChromaStride(l.stride)
		ySize := l.stride * l.height
		copyRows(slot, l.stride, src.Y[src.YOffset(b.Min.X, b.Min.Y):], src.YStride, l.width, l.height)
		copyRows(slot[ySize:], cs, src.Cb[src.COffset(b.Min.X, b.Min.Y):], src.CStride, cw, ch)
		copyRows(slot[ySize+cs*ch:], cs, src.Cr[src.COffset(b.Min.X, b.Min.Y):], src.CStride, cw, ch)
		return nil

	case *image.Gray:
		if l.format != raster.FormatGray8 {
			break
		}
		copyRows(slot, l.stride, src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, l.width, l.height)
		return nil

	case *image.RGBA:
		if l.format != raster.FormatRGBA32 {
			break
		}
		copyRows(slot, l.stride, src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, 4*l.width, l.height)
		return nil

	case *raster.Image:
		if l.format != src.Format || src.Format.Planar() {
			break
		}
		copyRows(slot, l.stride, src.Pix, src.Stride, raster.MinRowStride(l.format, l.width), l.height)
		return nil
	}
	return fmt.Errorf("cannot copy %T into %s without conversion", img, l.format)
}

func copyRows(dst []byte, dstStride int, src []byte, srcStride, rowBytes, rows int) {
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:y*dstStride+rowBytes], src[y*srcStride:y*srcStride+rowBytes])
	}
}
