// Package av1decoder provides an AV1 ports.Codec backed by libaom.
package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

// Wrapper for aom_codec_dec_init
static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int is_i420(aom_image_t *img) {
    return img->fmt == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"io"
	"unsafe"

	"github.com/user/vidseq/pkg/ports"
)

// ErrUnsupportedPixelFormat is returned for streams that are not 8-bit 4:2:0.
var ErrUnsupportedPixelFormat = errors.New("av1decoder: only 8-bit 4:2:0 output is supported")

// Decoder implements ports.Codec using libaom.
// Decoded pictures are copied out of libaom into pooled image.YCbCr buffers.
type Decoder struct {
	codec    *C.aom_codec_ctx_t
	queue    []ports.Frame
	pts      []int64
	free     []*image.YCbCr
	draining bool
}

// New creates a new AV1 decoder.
func New() *Decoder {
	return &Decoder{}
}

// Open initializes libaom for an AV1 stream.
func (d *Decoder) Open(stream ports.StreamInfo) error {
	if stream.Codec != ports.CodecAV1 {
		return fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, stream.Codec)
	}
	return d.init()
}

func (d *Decoder) init() error {
	if d.codec != nil {
		return nil
	}
	codec := (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if codec == nil {
		return fmt.Errorf("%w: decoder context", ports.ErrAllocation)
	}
	C.memset(unsafe.Pointer(codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(codec))
		if res == C.AOM_CODEC_MEM_ERROR {
			return fmt.Errorf("%w: libaom init", ports.ErrAllocation)
		}
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	d.codec = codec
	return nil
}

// SendPacket decodes one temporal unit. A nil packet drains the decoder.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	if d.codec == nil {
		return fmt.Errorf("decoder not initialized")
	}
	if d.draining {
		return io.EOF
	}

	var res C.aom_codec_err_t
	if pkt == nil {
		d.draining = true
		res = C.aom_codec_decode(d.codec, nil, 0, nil)
	} else {
		if len(pkt.Data) == 0 {
			return fmt.Errorf("empty frame data")
		}
		d.pts = append(d.pts, pkt.PTS)
		res = C.aom_codec_decode(
			d.codec,
			(*C.uint8_t)(unsafe.Pointer(&pkt.Data[0])),
			C.size_t(len(pkt.Data)),
			nil,
		)
	}
	if res != C.AOM_CODEC_OK {
		return fmt.Errorf("decode failed: %d", res)
	}
	return d.collect()
}

// collect copies every picture libaom has ready into the output queue.
func (d *Decoder) collect() error {
	var iter C.aom_codec_iter_t
	for {
		img := C.aom_codec_get_frame(d.codec, &iter)
		if img == nil {
			return nil
		}
		if C.is_i420(img) == 0 {
			return ErrUnsupportedPixelFormat
		}

		var pts int64
		if len(d.pts) > 0 {
			pts, d.pts = d.pts[0], d.pts[1:]
		}
		ycc := d.copyImage(img)
		d.queue = append(d.queue, ports.Frame{
			Image:   ycc,
			PTS:     pts,
			Release: func() { d.free = append(d.free, ycc) },
		})
	}
}

func (d *Decoder) copyImage(img *C.aom_image_t) *image.YCbCr {
	width := int(C.get_width(img))
	height := int(C.get_height(img))
	rect := image.Rect(0, 0, width, height)

	var dst *image.YCbCr
	for i, f := range d.free {
		if f.Rect == rect {
			dst = f
			d.free = append(d.free[:i], d.free[i+1:]...)
			break
		}
	}
	if dst == nil {
		dst = image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
	}

	copyPlane(dst.Y, dst.YStride, C.get_plane(img, 0), int(C.get_stride(img, 0)), width, height)
	cw, ch := (width+1)/2, (height+1)/2
	copyPlane(dst.Cb, dst.CStride, C.get_plane(img, 1), int(C.get_stride(img, 1)), cw, ch)
	copyPlane(dst.Cr, dst.CStride, C.get_plane(img, 2), int(C.get_stride(img, 2)), cw, ch)
	return dst
}

func copyPlane(dst []byte, dstStride int, src *C.uchar, srcStride, width, height int) {
	plane := unsafe.Slice((*byte)(unsafe.Pointer(src)), srcStride*(height-1)+width)
	for y := 0; y < height; y++ {
		copy(dst[y*dstStride:y*dstStride+width], plane[y*srcStride:y*srcStride+width])
	}
}

// ReceiveFrame returns the oldest decoded picture.
func (d *Decoder) ReceiveFrame() (ports.Frame, error) {
	if len(d.queue) > 0 {
		f := d.queue[0]
		d.queue = d.queue[1:]
		return f, nil
	}
	if d.draining {
		return ports.Frame{}, io.EOF
	}
	return ports.Frame{}, ports.ErrAgain
}

// Flush drops queued pictures and restarts libaom so decoding can resume at
// the next keyframe.
func (d *Decoder) Flush() error {
	d.queue = nil
	d.pts = nil
	d.draining = false
	if d.codec == nil {
		return nil
	}
	d.destroy()
	return d.init()
}

// Close releases decoder resources. It is safe to call more than once.
func (d *Decoder) Close() error {
	d.queue = nil
	d.pts = nil
	d.free = nil
	d.destroy()
	return nil
}

func (d *Decoder) destroy() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

var _ ports.Codec = (*Decoder)(nil)
