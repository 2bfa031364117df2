package seqdecode

import (
	"fmt"
	"strings"

	"github.com/user/vidseq/pkg/raster"
)

// Variant selects how kept frames reach the output buffer.
type Variant int

const (
	// VariantPlain converts or copies whole frames.
	VariantPlain Variant = iota
	// VariantFusedCropResize resamples the crop window of every frame to the output size.
	VariantFusedCropResize
)

func (v Variant) String() string {
	switch v {
	case VariantPlain:
		return "plain"
	case VariantFusedCropResize:
		return "fused"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses "plain" or "fused".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return VariantPlain, nil
	case "fused", "fused_crop_resize":
		return VariantFusedCropResize, nil
	default:
		return 0, fmt.Errorf("seqdecode: unknown variant %q", s)
	}
}

// Request describes one sequence to decode.
type Request struct {
	// SeekFrame is the logical index of the first candidate frame.
	SeekFrame int64
	// SequenceLength is the number of output slots.
	SequenceLength int
	// Stride keeps every Stride-th frame after the seek point.
	Stride int

	// Width and Height of each output frame. Zero falls back to the
	// configured resize size, then to the codec size.
	Width  int
	Height int
	// RowStride in bytes. Zero means tightly packed.
	RowStride int
	// Format of the output frames. FormatUnknown means native.
	Format raster.PixelFormat
}

// layout is a request resolved against the open stream.
type layout struct {
	width, height int
	stride        int
	format        raster.PixelFormat
	frameSize     int
}

func (d *Decoder) resolve(req Request) (layout, error) {
	if req.SequenceLength <= 0 {
		return layout{}, fmt.Errorf("%w: sequence length %d", ErrInvalidRequest, req.SequenceLength)
	}
	if req.Stride <= 0 {
		return layout{}, fmt.Errorf("%w: stride %d", ErrInvalidRequest, req.Stride)
	}
	if req.SeekFrame < 0 {
		return layout{}, fmt.Errorf("%w: seek frame %d", ErrInvalidRequest, req.SeekFrame)
	}

	l := layout{
		width:  firstPositive(req.Width, d.resizeW, d.stream.Width),
		height: firstPositive(req.Height, d.resizeH, d.stream.Height),
		format: req.Format,
	}
	if l.format == raster.FormatUnknown {
		l.format = d.nativeFmt
	}
	if l.width <= 0 || l.height <= 0 {
		return layout{}, fmt.Errorf("%w: output size %dx%d", ErrInvalidRequest, l.width, l.height)
	}

	minStride := raster.MinRowStride(l.format, l.width)
	l.stride = req.RowStride
	if l.stride == 0 {
		l.stride = minStride
	}
	if l.stride < minStride {
		return layout{}, fmt.Errorf("%w: row stride %d below %d", ErrInvalidRequest, l.stride, minStride)
	}
	l.frameSize = raster.FrameSize(l.format, l.width, l.height, l.stride)
	return l, nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
