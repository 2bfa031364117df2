// Package h264decoder provides an H.264 ports.Codec that streams Annex B
// packets through an ffmpeg process and reads back raw yuv420p pictures.
//
// ffmpeg's raw output carries no timestamps, so every picture is labelled
// with the smallest packet PTS still pending. The labels stay aligned only
// while ffmpeg emits one picture per packet. Each session therefore starts
// at a keyframe, and leading pictures presented before that keyframe (open
// GOP after a seek) are never sent, since they reference the previous GOP.
package h264decoder

import (
	"container/heap"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/user/vidseq/pkg/ports"
)

var (
	// ErrNotInitialized is returned when decoder methods are called before Open.
	ErrNotInitialized = errors.New("h264decoder: decoder not initialized")

	// ErrDecodeFailed is returned when the ffmpeg process fails.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found")
)

// Decoder implements ports.Codec. The ffmpeg process is started lazily on
// the first packet and restarted after Flush.
type Decoder struct {
	mu   sync.Mutex
	cond *sync.Cond

	ffmpegPath string
	width      int
	height     int

	proc     *process
	queue    []*image.YCbCr
	free     []*image.YCbCr
	pts      ptsHeap
	keyPTS   int64
	started  bool
	draining bool
	procErr  error
	procDone bool
}

// New creates a new H.264 decoder.
func New() *Decoder {
	d := &Decoder{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Open locates ffmpeg and records the stream geometry.
func (d *Decoder) Open(stream ports.StreamInfo) error {
	if stream.Codec != ports.CodecH264 {
		return fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, stream.Codec)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return fmt.Errorf("h264decoder: invalid stream size %dx%d", stream.Width, stream.Height)
	}
	path, err := FindFFmpeg()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ffmpegPath = path
	d.width = stream.Width
	d.height = stream.Height
	return nil
}

// SendPacket writes one Annex B access unit to ffmpeg. A nil packet closes
// ffmpeg's input so the remaining pictures are flushed out.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	d.mu.Lock()
	if d.ffmpegPath == "" {
		d.mu.Unlock()
		return ErrNotInitialized
	}
	if d.draining {
		d.mu.Unlock()
		return io.EOF
	}
	if d.procErr != nil {
		err := d.procErr
		d.mu.Unlock()
		return err
	}

	if pkt == nil {
		d.draining = true
		proc := d.proc
		if proc == nil {
			d.procDone = true
		}
		d.mu.Unlock()
		if proc != nil {
			proc.closeInput()
		}
		return nil
	}

	if !d.admit(pkt) {
		d.mu.Unlock()
		return nil
	}

	if d.proc == nil {
		proc, err := startProcess(d.ffmpegPath, d.width, d.height, d.deliver)
		if err != nil {
			d.mu.Unlock()
			return err
		}
		d.proc = proc
	}
	heap.Push(&d.pts, pkt.PTS)
	proc := d.proc
	d.mu.Unlock()

	// Writes happen without the lock so the reader can keep queueing output.
	if err := proc.write(pkt.Data); err != nil {
		return fmt.Errorf("%w: write packet: %v", ErrDecodeFailed, err)
	}
	return nil
}

// admit reports whether pkt can be decoded in the current session. The
// caller holds d.mu.
func (d *Decoder) admit(pkt *ports.Packet) bool {
	if !d.started {
		if !pkt.Keyframe {
			return false
		}
		d.started, d.keyPTS = true, pkt.PTS
		return true
	}
	return pkt.PTS >= d.keyPTS
}

// deliver is called by the process reader for every picture and once more
// with a nil picture when ffmpeg's output ends.
func (d *Decoder) deliver(proc *process, frame []byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if proc != d.proc {
		return
	}
	if frame == nil {
		d.procDone = true
		if err != nil {
			d.procErr = fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		d.cond.Broadcast()
		return
	}
	d.queue = append(d.queue, d.toYCbCr(frame))
	d.cond.Broadcast()
}

func (d *Decoder) toYCbCr(frame []byte) *image.YCbCr {
	rect := image.Rect(0, 0, d.width, d.height)
	var img *image.YCbCr
	if n := len(d.free); n > 0 && d.free[n-1].Rect == rect {
		img, d.free = d.free[n-1], d.free[:n-1]
	} else {
		img = image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
	}

	ySize := d.width * d.height
	cw, ch := (d.width+1)/2, (d.height+1)/2
	copy(img.Y, frame[:ySize])
	copy(img.Cb, frame[ySize:ySize+cw*ch])
	copy(img.Cr, frame[ySize+cw*ch:ySize+2*cw*ch])
	return img
}

// ReceiveFrame returns the next picture. Before draining it never blocks;
// while draining it waits for ffmpeg to produce output or exit.
func (d *Decoder) ReceiveFrame() (ports.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if len(d.queue) > 0 {
			img := d.queue[0]
			d.queue = d.queue[1:]
			var pts int64
			if d.pts.Len() > 0 {
				pts = heap.Pop(&d.pts).(int64)
			}
			return ports.Frame{
				Image: img,
				PTS:   pts,
				Release: func() {
					d.mu.Lock()
					d.free = append(d.free, img)
					d.mu.Unlock()
				},
			}, nil
		}
		if d.procErr != nil {
			return ports.Frame{}, d.procErr
		}
		if !d.draining {
			return ports.Frame{}, ports.ErrAgain
		}
		if d.procDone {
			return ports.Frame{}, io.EOF
		}
		d.cond.Wait()
	}
}

// Flush stops the running ffmpeg process and discards pending output.
func (d *Decoder) Flush() error {
	d.mu.Lock()
	proc := d.proc
	d.proc = nil
	d.queue = nil
	d.pts = d.pts[:0]
	d.started = false
	d.draining = false
	d.procDone = false
	d.procErr = nil
	d.mu.Unlock()

	if proc != nil {
		proc.kill()
	}
	return nil
}

// Close stops ffmpeg. It is safe to call more than once.
func (d *Decoder) Close() error {
	err := d.Flush()
	d.mu.Lock()
	d.free = nil
	d.ffmpegPath = ""
	d.mu.Unlock()
	return err
}

// ptsHeap reorders input timestamps into presentation order.
type ptsHeap []int64

func (h ptsHeap) Len() int           { return len(h) }
func (h ptsHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h ptsHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *ptsHeap) Push(x any)        { *h = append(*h, x.(int64)) }
func (h *ptsHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ ports.Codec = (*Decoder)(nil)
