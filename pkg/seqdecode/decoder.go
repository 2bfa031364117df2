// Package seqdecode decodes fixed-length frame sequences from a video.
//
// A Decoder owns one container and one codec. Decode seeks backward to the
// keyframe before the requested frame, decodes forward, drops frames that
// precede the target, keeps every stride-th frame and writes each one into
// the next slot of a caller-owned buffer. Slots left over when the stream
// ends are zero-filled, so every sequence has the same byte length.
//
// A Decoder is not safe for concurrent use. Run one per worker.
package seqdecode

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/user/vidseq/pkg/adapters/converter"
	"github.com/user/vidseq/pkg/adapters/logger"
	"github.com/user/vidseq/pkg/crop"
	"github.com/user/vidseq/pkg/ports"
	"github.com/user/vidseq/pkg/raster"
	"github.com/user/vidseq/pkg/resample"
)

type state int

const (
	stateClosed state = iota
	stateInitialized
	stateDecoding
)

// Options wires a Decoder to its container and codec implementations.
type Options struct {
	Open   ports.OpenDemuxerFunc
	Codecs ports.CodecFactory
	Logger ports.Logger
}

// Decoder is a sequence decode session.
type Decoder struct {
	variant Variant
	open    ports.OpenDemuxerFunc
	codecs  ports.CodecFactory
	logger  ports.Logger

	state     state
	demux     ports.Demuxer
	codec     ports.Codec
	stream    ports.StreamInfo
	nativeFmt raster.PixelFormat

	window   crop.Window
	cropType crop.Type
	resizeW  int
	resizeH  int

	conv     *converter.Context
	convKey  convKey
	scratch  *raster.Image
	lastKept int
}

type convKey struct {
	w, h int
	f    raster.PixelFormat
}

// New creates a closed decoder of the given variant.
func New(variant Variant, opts Options) *Decoder {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Decoder{
		variant: variant,
		open:    opts.Open,
		codecs:  opts.Codecs,
		logger:  log.WithComponent("seqdecode"),
	}
}

// NewPlain creates a decoder that converts or copies whole frames.
func NewPlain(opts Options) *Decoder {
	return New(VariantPlain, opts)
}

// NewFusedCropResize creates a decoder that resamples the crop window.
func NewFusedCropResize(opts Options) *Decoder {
	return New(VariantFusedCropResize, opts)
}

// Variant returns the variant chosen at construction.
func (d *Decoder) Variant() Variant { return d.variant }

// Initialize opens path, selects its best video stream and opens a codec
// for it. A decoder that is already open is released first.
func (d *Decoder) Initialize(path string) (err error) {
	if d.open == nil || d.codecs == nil {
		return fmt.Errorf("%w: decoder has no container or codec implementation", ErrOpen)
	}
	if d.state != stateClosed {
		d.Release()
	}

	demux, err := d.open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	var codec ports.Codec
	defer func() {
		if err != nil {
			if codec != nil {
				codec.Close()
			}
			demux.Close()
		}
	}()

	stream, err := demux.BestVideoStream()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStreamNotFound, path, err)
	}

	codec, err = d.codecs(stream.Codec)
	if err != nil {
		if errors.Is(err, ports.ErrAllocation) {
			return fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrCodecNotFound, stream.Codec, err)
	}
	if err = codec.Open(stream); err != nil {
		if errors.Is(err, ports.ErrAllocation) {
			return fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrCodecOpen, stream.Codec, err)
	}

	d.demux, d.codec, d.stream = demux, codec, stream
	d.nativeFmt = stream.PixelFormat
	if d.nativeFmt == raster.FormatUnknown {
		d.nativeFmt = raster.FormatYUV420P
	}
	d.state = stateInitialized

	d.logger.Debug("Opened %s: %s %dx%d, %d/%d fps", path, stream.Codec, stream.Width, stream.Height,
		stream.AvgFrameRate.Num, stream.AvgFrameRate.Den)
	return nil
}

// Release closes the codec and the container. It is safe to call on a
// decoder that was never initialized and to call more than once.
func (d *Decoder) Release() error {
	if d.state == stateClosed {
		return nil
	}
	var errs []error
	if d.codec != nil {
		errs = append(errs, d.codec.Close())
	}
	if d.demux != nil {
		errs = append(errs, d.demux.Close())
	}
	d.codec, d.demux = nil, nil
	d.stream = ports.StreamInfo{}
	d.conv, d.convKey, d.scratch = nil, convKey{}, nil
	d.state = stateClosed
	return errors.Join(errs...)
}

// Stream returns the selected stream. ok is false before Initialize.
func (d *Decoder) Stream() (info ports.StreamInfo, ok bool) {
	return d.stream, d.state != stateClosed
}

// CodecWidth returns the native frame width, or 0 before Initialize.
func (d *Decoder) CodecWidth() int { return d.stream.Width }

// CodecHeight returns the native frame height, or 0 before Initialize.
func (d *Decoder) CodecHeight() int { return d.stream.Height }

// SetCropWindow sets the region the fused variant resamples. The zero
// Window selects the whole frame. The plain variant ignores it.
func (d *Decoder) SetCropWindow(w crop.Window) { d.window = w }

// CropWindow returns the current crop window.
func (d *Decoder) CropWindow() crop.Window { return d.window }

// SetCropType records how the current crop window was generated.
func (d *Decoder) SetCropType(t crop.Type) { d.cropType = t }

// CropType returns the recorded crop type.
func (d *Decoder) CropType() crop.Type { return d.cropType }

// SetResizeWidth sets the output width used when a request leaves it zero.
func (d *Decoder) SetResizeWidth(w int) { d.resizeW = w }

// SetResizeHeight sets the output height used when a request leaves it zero.
func (d *Decoder) SetResizeHeight(h int) { d.resizeH = h }

// SeekFrame seeks to the keyframe at or before frame and returns the
// presentation timestamp of frame in stream time base units. It returns
// -1 when the seek fails.
func (d *Decoder) SeekFrame(frame int64) int64 {
	pts, err := d.seek(frame)
	if err != nil {
		d.logger.Debug("Seek to frame %d failed: %v", frame, err)
		return -1
	}
	return pts
}

func (d *Decoder) seek(frame int64) (int64, error) {
	if d.state == stateClosed {
		return 0, ErrNotInitialized
	}
	rate := d.stream.AvgFrameRate
	if !rate.Valid() || !d.stream.TimeBase.Valid() {
		return 0, fmt.Errorf("%w: stream has no frame rate or time base", ErrSeek)
	}
	frameDur := rate.Invert()
	ts := ports.Rescale(frame, frameDur, ports.MicrosecondBase)
	pts := ports.Rescale(frame, frameDur, d.stream.TimeBase)
	if err := d.demux.Seek(ts, true); err != nil {
		return 0, fmt.Errorf("%w: frame %d: %w", ErrSeek, frame, err)
	}
	d.logger.Debug("Seeked to frame %d (%d us, pts %d)", frame, ts, pts)
	return pts, nil
}

// Decode fills out with req.SequenceLength frames. out must hold at least
// SequenceLength times the frame size of the resolved layout. On error the
// contents of out are undefined, except that a failed seek leaves it
// untouched. The codec is flushed on every return so the session can be
// reused at another position.
func (d *Decoder) Decode(out []byte, req Request) (err error) {
	if d.state == stateClosed {
		return ErrNotInitialized
	}
	l, err := d.resolve(req)
	if err != nil {
		return err
	}
	need := l.frameSize * req.SequenceLength
	if len(out) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(out), need)
	}
	if err := d.checkWindow(); err != nil {
		return err
	}

	d.state = stateDecoding
	defer func() {
		if ferr := d.codec.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("%w: flush: %w", ErrDecode, ferr)
		}
		d.state = stateInitialized
	}()

	selectPTS, err := d.seek(req.SeekFrame)
	if err != nil {
		return err
	}

	write, err := d.writer(l)
	if err != nil {
		return err
	}

	kept, err := d.run(out, l, req, selectPTS, write)
	if err != nil {
		return err
	}

	if kept < req.SequenceLength {
		clear(out[kept*l.frameSize : need])
		d.logger.Debug("Stream ended after %d frames, padded %d slots", kept, req.SequenceLength-kept)
	}
	d.lastKept = kept
	return nil
}

// Kept returns the number of decoded frames written by the last
// successful Decode, not counting padding.
func (d *Decoder) Kept() int { return d.lastKept }

// run is the packet/frame loop. It returns the number of slots filled.
func (d *Decoder) run(out []byte, l layout, req Request, selectPTS int64, write frameWriter) (int, error) {
	kept, seen := 0, 0
	eof := false

	for kept < req.SequenceLength {
		if !eof {
			pkt, err := d.demux.ReadPacket()
			switch {
			case errors.Is(err, io.EOF):
				eof = true
				pkt = nil
			case err != nil:
				return kept, fmt.Errorf("%w: read packet: %w", ErrDecode, err)
			case pkt.StreamIndex != d.stream.Index:
				continue
			}
			if err := d.codec.SendPacket(pkt); err != nil {
				return kept, fmt.Errorf("%w: send packet: %w", ErrDecode, err)
			}
		}

		for kept < req.SequenceLength {
			frame, err := d.codec.ReceiveFrame()
			if errors.Is(err, ports.ErrAgain) {
				if eof {
					return kept, nil
				}
				break
			}
			if errors.Is(err, io.EOF) {
				return kept, nil
			}
			if err != nil {
				return kept, fmt.Errorf("%w: receive frame: %w", ErrDecode, err)
			}

			var werr error
			if frame.PTS >= selectPTS {
				if seen%req.Stride == 0 {
					slot := out[kept*l.frameSize : (kept+1)*l.frameSize]
					werr = write(slot, frame.Image)
					kept++
				}
				seen++
			}
			if frame.Release != nil {
				frame.Release()
			}
			if werr != nil {
				return kept, fmt.Errorf("%w: frame at pts %d: %w", ErrDecode, frame.PTS, werr)
			}
		}
	}
	return kept, nil
}

// checkWindow rejects a crop window outside the native frame.
func (d *Decoder) checkWindow() error {
	if d.variant != VariantFusedCropResize || d.window.Empty() {
		return nil
	}
	if !d.window.Fits(d.stream.Width, d.stream.Height) {
		return fmt.Errorf("%w: crop window %v outside %dx%d frame", ErrInvalidRequest, d.window, d.stream.Width, d.stream.Height)
	}
	return nil
}

// cropsFrame reports whether the fused variant has a window smaller than the frame.
func (d *Decoder) cropsFrame() bool {
	if d.variant != VariantFusedCropResize || d.window.Empty() {
		return false
	}
	return d.window != crop.Window{W: d.stream.Width, H: d.stream.Height}
}

type frameWriter func(slot []byte, img image.Image) error

// writer picks how kept frames reach their slot. A conversion context is
// only built when size or format differ from the codec output, or when the
// fused variant has a window to crop.
func (d *Decoder) writer(l layout) (frameWriter, error) {
	native := l.width == d.stream.Width && l.height == d.stream.Height && l.format == d.nativeFmt
	if native && !d.cropsFrame() {
		d.logger.Debug("No conversion needed, copying %s frames directly", l.format)
		return func(slot []byte, img image.Image) error {
			return copyFrame(slot, img, l)
		}, nil
	}

	if d.variant == VariantFusedCropResize {
		conv, err := d.converter(d.stream.Width, d.stream.Height, l.format)
		if err != nil {
			return nil, err
		}
		if d.scratch == nil || d.scratch.Format != l.format {
			d.scratch, err = raster.New(l.format, d.stream.Width, d.stream.Height)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrContext, err)
			}
		}
		d.logger.Debug("Crop-resizing %v to %dx%d %s", d.window, l.width, l.height, l.format)
		return func(slot []byte, img image.Image) error {
			dst, err := raster.Wrap(slot, l.format, l.width, l.height, l.stride)
			if err != nil {
				return err
			}
			if err := conv.Convert(d.scratch, img); err != nil {
				return err
			}
			return resample.CropResize(dst, d.scratch, d.window)
		}, nil
	}

	conv, err := d.converter(l.width, l.height, l.format)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Converting frames to %dx%d %s", l.width, l.height, l.format)
	return func(slot []byte, img image.Image) error {
		dst, err := raster.Wrap(slot, l.format, l.width, l.height, l.stride)
		if err != nil {
			return err
		}
		return conv.Convert(dst, img)
	}, nil
}

// converter returns a context from the codec output to w x h in f,
// reusing the previous one when the geometry is unchanged.
func (d *Decoder) converter(w, h int, f raster.PixelFormat) (*converter.Context, error) {
	key := convKey{w: w, h: h, f: f}
	if d.conv != nil && d.convKey == key {
		return d.conv, nil
	}
	conv, err := converter.New(d.stream.Width, d.stream.Height, d.nativeFmt, w, h, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContext, err)
	}
	d.conv, d.convKey = conv, key
	return conv, nil
}
