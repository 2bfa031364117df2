package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Image is a draw.Image view over a frame buffer in one of the gray or RGB
// layouts. The buffer is borrowed, never copied: writes through Set land in
// the caller's memory.
type Image struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
	Format PixelFormat
}

// Wrap returns an Image over pix. A non-positive stride means tightly packed.
// YUV420P buffers cannot be wrapped; they are only ever copied plane by plane.
func Wrap(pix []uint8, f PixelFormat, width, height, stride int) (*Image, error) {
	if f == FormatUnknown || f == FormatYUV420P {
		return nil, fmt.Errorf("%w: cannot wrap %s", ErrUnsupportedFormat, f)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid dimensions %dx%d", width, height)
	}
	if stride <= 0 {
		stride = MinRowStride(f, width)
	}
	if stride < MinRowStride(f, width) {
		return nil, fmt.Errorf("raster: stride %d below minimum %d", stride, MinRowStride(f, width))
	}
	size := FrameSize(f, width, height, stride)
	if len(pix) < size {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(pix), size)
	}
	return &Image{
		Pix:    pix[:size],
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
		Format: f,
	}, nil
}

// New allocates a tightly packed Image.
func New(f PixelFormat, width, height int) (*Image, error) {
	return Wrap(make([]uint8, FrameSize(f, width, height, 0)), f, width, height, 0)
}

// ColorModel implements image.Image.
func (p *Image) ColorModel() color.Model {
	if p.Format == FormatGray8 {
		return color.GrayModel
	}
	return color.RGBAModel
}

// Bounds implements image.Image.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image.
func (p *Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}
	switch p.Format {
	case FormatGray8:
		return color.Gray{Y: p.Pix[y*p.Stride+x]}
	case FormatRGB24:
		i := y*p.Stride + x*3
		return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: 0xff}
	case FormatBGR24:
		i := y*p.Stride + x*3
		return color.RGBA{R: p.Pix[i+2], G: p.Pix[i+1], B: p.Pix[i], A: 0xff}
	case FormatRGBA32:
		i := y*p.Stride + x*4
		return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: p.Pix[i+3]}
	case FormatPlanarRGB24:
		plane := p.Stride * p.Rect.Dy()
		i := y*p.Stride + x
		return color.RGBA{R: p.Pix[i], G: p.Pix[plane+i], B: p.Pix[2*plane+i], A: 0xff}
	}
	return color.RGBA{}
}

// Set implements draw.Image.
func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	if p.Format == FormatGray8 {
		p.Pix[y*p.Stride+x] = color.GrayModel.Convert(c).(color.Gray).Y
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	if p.Format == FormatRGBA32 {
		i := y*p.Stride + x*4
		p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3] = rgba.R, rgba.G, rgba.B, rgba.A
		return
	}
	p.SetRGB(x, y, rgba.R, rgba.G, rgba.B)
}

// SetRGB stores an opaque colour without going through color.Color.
// Gray frames receive the luma of the colour. x and y must be in bounds.
func (p *Image) SetRGB(x, y int, r, g, b uint8) {
	switch p.Format {
	case FormatGray8:
		p.Pix[y*p.Stride+x] = luma(r, g, b)
	case FormatRGB24:
		i := y*p.Stride + x*3
		p.Pix[i], p.Pix[i+1], p.Pix[i+2] = r, g, b
	case FormatBGR24:
		i := y*p.Stride + x*3
		p.Pix[i], p.Pix[i+1], p.Pix[i+2] = b, g, r
	case FormatRGBA32:
		i := y*p.Stride + x*4
		p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3] = r, g, b, 0xff
	case FormatPlanarRGB24:
		plane := p.Stride * p.Rect.Dy()
		i := y*p.Stride + x
		p.Pix[i], p.Pix[plane+i], p.Pix[2*plane+i] = r, g, b
	}
}

// luma uses the same weights as color.GrayModel.
func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// Clear sets every byte of the frame to zero.
func (p *Image) Clear() {
	clear(p.Pix)
}

var _ draw.Image = (*Image)(nil)
