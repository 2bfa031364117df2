// Package raster describes uncompressed frame layouts and provides image
// views over caller-owned frame buffers.
package raster

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when a pixel format cannot be used for the requested operation.
	ErrUnsupportedFormat = errors.New("raster: unsupported pixel format")

	// ErrShortBuffer is returned when a buffer is smaller than the frame it must hold.
	ErrShortBuffer = errors.New("raster: buffer too small for frame")
)

// PixelFormat identifies the memory layout of an uncompressed frame.
type PixelFormat int

const (
	// FormatUnknown is the zero value. Requests use it to mean "native format".
	FormatUnknown PixelFormat = iota
	// FormatGray8 is one 8-bit luminance channel.
	FormatGray8
	// FormatRGB24 is channel-interleaved R, G, B.
	FormatRGB24
	// FormatBGR24 is channel-interleaved B, G, R.
	FormatBGR24
	// FormatRGBA32 is channel-interleaved R, G, B, A.
	FormatRGBA32
	// FormatPlanarRGB24 stores the R, G and B planes one after another (CHW).
	FormatPlanarRGB24
	// FormatYUV420P is planar Y, Cb, Cr with 2x2 chroma subsampling.
	// It is the native output of the bundled codecs.
	FormatYUV420P
)

var formatNames = map[PixelFormat]string{
	FormatUnknown:     "unknown",
	FormatGray8:       "gray",
	FormatRGB24:       "rgb24",
	FormatBGR24:       "bgr24",
	FormatRGBA32:      "rgba",
	FormatPlanarRGB24: "rgb24p",
	FormatYUV420P:     "yuv420p",
}

// String returns the short name of the pixel format.
func (f PixelFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// ParsePixelFormat parses a format name as produced by String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s && f != FormatUnknown {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Channels returns the number of colour channels.
func (f PixelFormat) Channels() int {
	switch f {
	case FormatGray8:
		return 1
	case FormatRGB24, FormatBGR24, FormatPlanarRGB24, FormatYUV420P:
		return 3
	case FormatRGBA32:
		return 4
	default:
		return 0
	}
}

// Planar reports whether channels are stored in separate planes.
func (f PixelFormat) Planar() bool {
	return f == FormatPlanarRGB24 || f == FormatYUV420P
}

// MinRowStride returns the tightly packed row stride in bytes. For planar
// formats it is the stride of the first plane.
func MinRowStride(f PixelFormat, width int) int {
	if f.Planar() {
		return width
	}
	return width * f.Channels()
}

// FrameSize returns the number of bytes one frame occupies with the given
// row stride. A non-positive rowStride means tightly packed.
func FrameSize(f PixelFormat, width, height, rowStride int) int {
	if width <= 0 || height <= 0 || f.Channels() == 0 {
		return 0
	}
	if rowStride <= 0 {
		rowStride = MinRowStride(f, width)
	}
	switch f {
	case FormatYUV420P:
		return rowStride*height + 2*ChromaStride(rowStride)*ChromaRows(height)
	case FormatPlanarRGB24:
		return 3 * rowStride * height
	default:
		return rowStride * height
	}
}

// ChromaStride returns the row stride of a 4:2:0 chroma plane.
func ChromaStride(lumaStride int) int {
	return (lumaStride + 1) / 2
}

// ChromaRows returns the number of rows of a 4:2:0 chroma plane.
func ChromaRows(height int) int {
	return (height + 1) / 2
}
