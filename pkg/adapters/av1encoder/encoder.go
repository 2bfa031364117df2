// Package av1encoder encodes frames to AV1 with libaom and muxes them into a
// fragmented MP4. It produces the synthetic clips used by `vidseq synth` and
// by the decode round-trip tests.
package av1encoder

/*
#cgo !windows pkg-config: aom
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -laom -static -lpthread
#include <aom/aom_encoder.h>
#include <aom/aomcx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_interface() {
    return aom_codec_av1_cx();
}

// Wrapper for aom_codec_enc_init
static aom_codec_err_t init_encoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface,
                                     aom_codec_enc_cfg_t *cfg, aom_codec_flags_t flags) {
    return aom_codec_enc_init_ver(ctx, iface, cfg, flags, AOM_ENCODER_ABI_VERSION);
}

// Helper functions to access packet data
static int is_frame_packet(const aom_codec_cx_pkt_t *pkt) {
    return pkt->kind == AOM_CODEC_CX_FRAME_PKT;
}

static void* get_frame_buf(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.buf;
}

static size_t get_frame_sz(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.sz;
}

static int is_keyframe(const aom_codec_cx_pkt_t *pkt) {
    return (pkt->data.frame.flags & AOM_FRAME_IS_KEY) != 0;
}

static aom_codec_pts_t get_frame_pts(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.pts;
}

static unsigned char* plane_ptr(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_plane_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

// Wrapper for aom_codec_control (it's a variadic macro)
static aom_codec_err_t set_cpu_used(aom_codec_ctx_t *ctx, int value) {
    return aom_codec_control(ctx, AOME_SET_CPUUSED, value);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"unsafe"

	"github.com/user/vidseq/pkg/ports"
)

var (
	// ErrNotInitialized is returned when encoder methods are called before Begin.
	ErrNotInitialized = errors.New("av1encoder: encoder not initialized")

	// ErrInvalidGeometry is returned by Begin for a non-positive size or frame rate.
	ErrInvalidGeometry = errors.New("av1encoder: invalid frame size or rate")

	// ErrEncodingFailed wraps libaom error codes.
	ErrEncodingFailed = errors.New("av1encoder: encoding failed")
)

// Encoder implements ports.VideoEncoder using libaom. Timestamps are kept
// in milliseconds, the unit EncodeFrame receives.
type Encoder struct {
	mu sync.Mutex

	codec    *C.aom_codec_ctx_t
	cfg      *C.aom_codec_enc_cfg_t
	rawFrame *C.aom_image_t

	width   int
	height  int
	fps     float64
	options ports.EncoderOptions
	rgba    *image.RGBA

	frames     []encodedFrame
	frameCount int
}

type encodedFrame struct {
	data        []byte
	timestampUs int64
	isKeyframe  bool
}

// New creates a new AV1 encoder.
func New() *Encoder {
	return &Encoder{}
}

// Begin starts a clip. An encoder that is already running is reset.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("%w: %dx%d at %.2f fps", ErrInvalidGeometry, width, height, fps)
	}
	e.cleanup()

	e.width = width
	e.height = height
	e.fps = fps
	e.options = opts
	e.rgba = nil
	e.frames = nil
	e.frameCount = 0

	e.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if e.codec == nil {
		return fmt.Errorf("%w: allocate codec context", ports.ErrAllocation)
	}
	C.memset(unsafe.Pointer(e.codec), 0, C.sizeof_aom_codec_ctx_t)

	e.cfg = (*C.aom_codec_enc_cfg_t)(C.malloc(C.sizeof_aom_codec_enc_cfg_t))
	if e.cfg == nil {
		e.cleanup()
		return fmt.Errorf("%w: allocate encoder config", ports.ErrAllocation)
	}

	iface := C.get_av1_interface()
	if res := C.aom_codec_enc_config_default(iface, e.cfg, 0); res != C.AOM_CODEC_OK {
		e.cleanup()
		return fmt.Errorf("%w: default config: %d", ErrEncodingFailed, res)
	}

	e.cfg.g_w = C.uint(width)
	e.cfg.g_h = C.uint(height)
	e.cfg.g_timebase.num = 1
	e.cfg.g_timebase.den = 1000
	e.cfg.g_error_resilient = 0
	e.cfg.g_threads = 4

	// Realtime usage emits one packet per input frame with no lag.
	e.cfg.g_usage = C.AOM_USAGE_REALTIME
	e.cfg.g_lag_in_frames = 0
	if opts.KeyframeInterval > 0 {
		e.cfg.kf_max_dist = C.uint(opts.KeyframeInterval)
	}

	if opts.Bitrate > 0 {
		e.cfg.rc_target_bitrate = C.uint(opts.Bitrate)
	} else {
		e.cfg.rc_target_bitrate = C.uint(max(width*height/1000, 50))
	}

	e.cfg.rc_end_usage = C.AOM_CQ
	if opts.Quality > 0 && opts.Quality <= 63 {
		e.cfg.rc_min_quantizer = C.uint(opts.Quality)
		e.cfg.rc_max_quantizer = C.uint(min(opts.Quality+10, 63))
	}

	if res := C.init_encoder(e.codec, iface, e.cfg, 0); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		e.cleanup()
		return fmt.Errorf("%w: init: %d", ErrEncodingFailed, res)
	}

	// 0 is slowest, 10 fastest.
	C.set_cpu_used(e.codec, 8)

	e.rawFrame = (*C.aom_image_t)(C.malloc(C.sizeof_aom_image_t))
	if e.rawFrame == nil {
		e.cleanup()
		return fmt.Errorf("%w: allocate raw frame", ports.ErrAllocation)
	}
	if C.aom_img_alloc(e.rawFrame, C.AOM_IMG_FMT_I420, C.uint(width), C.uint(height), 32) == nil {
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
		e.cleanup()
		return fmt.Errorf("%w: allocate image buffer", ports.ErrAllocation)
	}

	return nil
}

// EncodeFrame encodes a single frame shown at timestampMs. 4:2:0 YCbCr
// images of the clip size are copied plane by plane; anything else is
// converted through RGBA.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return ErrNotInitialized
	}

	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 &&
		ycc.Rect.Dx() == e.width && ycc.Rect.Dy() == e.height {
		e.loadYCbCr(ycc)
	} else {
		if e.rgba == nil {
			e.rgba = image.NewRGBA(image.Rect(0, 0, e.width, e.height))
		}
		draw.Draw(e.rgba, e.rgba.Rect, img, img.Bounds().Min, draw.Src)
		e.loadRGBA(e.rgba)
	}

	flags := C.aom_enc_frame_flags_t(0)
	if e.frameCount == 0 || (e.options.KeyframeInterval > 0 && e.frameCount%e.options.KeyframeInterval == 0) {
		flags = C.AOM_EFLAG_FORCE_KF
	}

	if res := C.aom_codec_encode(e.codec, e.rawFrame, C.aom_codec_pts_t(timestampMs), 1, flags); res != C.AOM_CODEC_OK {
		return fmt.Errorf("%w: frame %d: %d", ErrEncodingFailed, e.frameCount, res)
	}
	e.drain()

	e.frameCount++
	return nil
}

// End flushes the encoder and returns the fragmented MP4.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return nil, ErrNotInitialized
	}
	defer e.cleanup()

	if res := C.aom_codec_encode(e.codec, nil, 0, 1, 0); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("%w: flush: %d", ErrEncodingFailed, res)
	}
	e.drain()

	mp4Data, err := e.buildMP4()
	if err != nil {
		return nil, fmt.Errorf("build mp4: %w", err)
	}
	return mp4Data, nil
}

// drain collects every compressed packet libaom has ready.
func (e *Encoder) drain() {
	var iter C.aom_codec_iter_t
	for {
		pkt := C.aom_codec_get_cx_data(e.codec, &iter)
		if pkt == nil {
			return
		}
		if C.is_frame_packet(pkt) == 0 {
			continue
		}
		e.frames = append(e.frames, encodedFrame{
			data:        C.GoBytes(C.get_frame_buf(pkt), C.int(C.get_frame_sz(pkt))),
			timestampUs: int64(C.get_frame_pts(pkt)) * 1000,
			isKeyframe:  C.is_keyframe(pkt) != 0,
		})
	}
}

func (e *Encoder) cleanup() {
	if e.rawFrame != nil {
		C.aom_img_free(e.rawFrame)
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
	}
	if e.codec != nil {
		C.aom_codec_destroy(e.codec)
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
	}
	if e.cfg != nil {
		C.free(unsafe.Pointer(e.cfg))
		e.cfg = nil
	}
}

// plane returns plane p of the raw frame as a Go slice and its stride.
func (e *Encoder) plane(p, rows int) ([]byte, int) {
	stride := int(C.get_plane_stride(e.rawFrame, C.int(p)))
	ptr := C.plane_ptr(e.rawFrame, C.int(p))
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), stride*rows), stride
}

func (e *Encoder) loadYCbCr(src *image.YCbCr) {
	cw, ch := (e.width+1)/2, (e.height+1)/2
	yPlane, yStride := e.plane(0, e.height)
	uPlane, uStride := e.plane(1, ch)
	vPlane, vStride := e.plane(2, ch)

	for y := 0; y < e.height; y++ {
		off := src.YOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(yPlane[y*yStride:y*yStride+e.width], src.Y[off:off+e.width])
	}
	for y := 0; y < ch; y++ {
		off := src.COffset(src.Rect.Min.X, src.Rect.Min.Y+2*y)
		copy(uPlane[y*uStride:y*uStride+cw], src.Cb[off:off+cw])
		copy(vPlane[y*vStride:y*vStride+cw], src.Cr[off:off+cw])
	}
}

// loadRGBA fills the raw frame with full-range 4:2:0 samples, the inverse
// of color.YCbCrToRGB used when decoded frames are converted back.
func (e *Encoder) loadRGBA(rgba *image.RGBA) {
	ch := (e.height + 1) / 2
	yPlane, yStride := e.plane(0, e.height)
	uPlane, uStride := e.plane(1, ch)
	vPlane, vStride := e.plane(2, ch)

	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			idx := rgba.PixOffset(x, y)
			yy, cb, cr := color.RGBToYCbCr(rgba.Pix[idx], rgba.Pix[idx+1], rgba.Pix[idx+2])
			yPlane[y*yStride+x] = yy
			if y%2 == 0 && x%2 == 0 {
				uPlane[(y/2)*uStride+x/2] = cb
				vPlane[(y/2)*vStride+x/2] = cr
			}
		}
	}
}

var _ ports.VideoEncoder = (*Encoder)(nil)
