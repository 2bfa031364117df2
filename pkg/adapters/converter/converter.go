// Package converter converts decoded pictures into caller-owned frame
// buffers, changing pixel format and size in one pass.
package converter

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/vidseq/pkg/raster"
)

// Context converts pictures of one fixed geometry and format into another.
// A Context reuses its scratch buffers and is not safe for concurrent use.
type Context struct {
	srcW, srcH int
	srcFmt     raster.PixelFormat
	dstW, dstH int
	dstFmt     raster.PixelFormat

	scaler  draw.Scaler
	scratch *image.RGBA
}

// New creates a conversion context. Sizes must be positive and the
// destination must be a gray or RGB layout.
func New(srcW, srcH int, srcFmt raster.PixelFormat, dstW, dstH int, dstFmt raster.PixelFormat) (*Context, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("converter: invalid geometry %dx%d -> %dx%d", srcW, srcH, dstW, dstH)
	}
	if srcFmt == raster.FormatUnknown {
		return nil, fmt.Errorf("%w: source %s", raster.ErrUnsupportedFormat, srcFmt)
	}
	if dstFmt == raster.FormatUnknown || dstFmt == raster.FormatYUV420P {
		return nil, fmt.Errorf("%w: destination %s", raster.ErrUnsupportedFormat, dstFmt)
	}

	c := &Context{
		srcW: srcW, srcH: srcH, srcFmt: srcFmt,
		dstW: dstW, dstH: dstH, dstFmt: dstFmt,
	}
	if srcW != dstW || srcH != dstH {
		c.scaler = draw.BiLinear.NewScaler(dstW, dstH, srcW, srcH)
		c.scratch = image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	}
	return c, nil
}

// Scales reports whether the context resizes.
func (c *Context) Scales() bool {
	return c.scaler != nil
}

// Convert writes src into dst. dst must have the destination size and format.
func (c *Context) Convert(dst *raster.Image, src image.Image) error {
	if dst.Format != c.dstFmt || dst.Rect.Dx() != c.dstW || dst.Rect.Dy() != c.dstH {
		return fmt.Errorf("converter: destination is %s %dx%d, context expects %s %dx%d",
			dst.Format, dst.Rect.Dx(), dst.Rect.Dy(), c.dstFmt, c.dstW, c.dstH)
	}
	sb := src.Bounds()
	if sb.Dx() != c.srcW || sb.Dy() != c.srcH {
		return fmt.Errorf("converter: source is %dx%d, context expects %dx%d", sb.Dx(), sb.Dy(), c.srcW, c.srcH)
	}

	if c.scaler != nil {
		c.scaler.Scale(c.scratch, c.scratch.Rect, src, sb, draw.Src, nil)
		packRGBA(dst, c.scratch)
		return nil
	}

	switch s := src.(type) {
	case *image.YCbCr:
		packYCbCr(dst, s)
	case *image.RGBA:
		packRGBA(dst, s)
	case *image.Gray:
		packGray(dst, s)
	default:
		draw.Draw(dst, dst.Rect, src, sb.Min, draw.Src)
	}
	return nil
}

func packYCbCr(dst *raster.Image, src *image.YCbCr) {
	b := src.Rect
	if dst.Format == raster.FormatGray8 {
		for y := 0; y < b.Dy(); y++ {
			yi := src.YOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src.Y[yi:yi+b.Dx()])
		}
		return
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			yi := src.YOffset(b.Min.X+x, b.Min.Y+y)
			ci := src.COffset(b.Min.X+x, b.Min.Y+y)
			r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
			dst.SetRGB(x, y, r, g, bl)
		}
	}
}

func packRGBA(dst *raster.Image, src *image.RGBA) {
	b := src.Rect
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		if dst.Format == raster.FormatRGBA32 {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*b.Dx()], row[:4*b.Dx()])
			continue
		}
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGB(x, y, row[4*x], row[4*x+1], row[4*x+2])
		}
	}
}

func packGray(dst *raster.Image, src *image.Gray) {
	b := src.Rect
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGB(x, y, row[x], row[x], row[x])
		}
	}
}
