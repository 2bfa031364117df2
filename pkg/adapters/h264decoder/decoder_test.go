package h264decoder

import (
	"container/heap"
	"errors"
	"image"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/user/vidseq/pkg/adapters/mp4demux"
	"github.com/user/vidseq/pkg/ports"
)

// encodeTestClip uses ffmpeg's test source and libx264 to produce a short
// H.264 MP4. The test is skipped when either is unavailable.
func encodeTestClip(t *testing.T, frames int) string {
	t.Helper()
	ffmpeg, err := FindFFmpeg()
	if err != nil {
		t.Skip("ffmpeg not available")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command(ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=25",
		"-frames:v", strconv.Itoa(frames),
		"-c:v", "libx264", "-g", "5", "-bf", "0", "-pix_fmt", "yuv420p",
		"-y", path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot encode H.264 here: %v: %s", err, out)
	}
	return path
}

func decodeAll(t *testing.T, demux ports.Demuxer, d *Decoder) []ports.Frame {
	t.Helper()
	var frames []ports.Frame
	for {
		pkt, err := demux.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		if err := d.SendPacket(pkt); err != nil {
			t.Fatalf("SendPacket failed: %v", err)
		}
		for {
			f, err := d.ReceiveFrame()
			if errors.Is(err, ports.ErrAgain) {
				break
			}
			if err != nil {
				t.Fatalf("ReceiveFrame failed: %v", err)
			}
			frames = append(frames, f)
		}
	}
	if err := d.SendPacket(nil); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	for {
		f, err := d.ReceiveFrame()
		if errors.Is(err, io.EOF) {
			return frames
		}
		if err != nil {
			t.Fatalf("ReceiveFrame failed: %v", err)
		}
		frames = append(frames, f)
	}
}

func TestDecoder_RoundTrip(t *testing.T) {
	path := encodeTestClip(t, 12)

	demux, err := mp4demux.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer demux.Close()

	info, err := demux.BestVideoStream()
	if err != nil {
		t.Fatalf("BestVideoStream failed: %v", err)
	}
	if info.Codec != ports.CodecH264 {
		t.Fatalf("codec = %s, want h264", info.Codec)
	}

	d := New()
	if err := d.Open(info); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	frames := decodeAll(t, demux, d)
	if len(frames) != 12 {
		t.Fatalf("decoded %d frames, want 12", len(frames))
	}
	for i, f := range frames {
		ycc, ok := f.Image.(*image.YCbCr)
		if !ok || ycc.Rect.Dx() != 64 || ycc.Rect.Dy() != 48 {
			t.Errorf("frame %d: unexpected image %T %v", i, f.Image, f.Image.Bounds())
		}
		if i > 0 && f.PTS <= frames[i-1].PTS {
			t.Errorf("frame %d: pts %d not after %d", i, f.PTS, frames[i-1].PTS)
		}
		f.Release()
	}

	// Restart from the second GOP after a flush.
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	fps := info.AvgFrameRate.Float64()
	if err := demux.Seek(int64(5/fps*1e6), true); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if got := len(decodeAll(t, demux, d)); got != 7 {
		t.Errorf("decoded %d frames after seek, want 7", got)
	}
}

func TestDecoder_OpenRejectsOtherCodecs(t *testing.T) {
	d := New()
	err := d.Open(ports.StreamInfo{Codec: ports.CodecAV1, Width: 64, Height: 48})
	if !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestDecoder_NotInitialized(t *testing.T) {
	d := New()
	if err := d.SendPacket(&ports.Packet{Data: []byte{0, 0, 0, 1}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := d.ReceiveFrame(); !errors.Is(err, ports.ErrAgain) {
		t.Errorf("expected ErrAgain, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestDecoder_DrainWithoutInput(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ffmpeg not available")
	}
	d := New()
	if err := d.Open(ports.StreamInfo{Codec: ports.CodecH264, Width: 16, Height: 16}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	if err := d.SendPacket(nil); err != nil {
		t.Fatalf("SendPacket(nil) failed: %v", err)
	}
	if _, err := d.ReceiveFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFindFFmpeg_CustomPath(t *testing.T) {
	SetFFmpegPath("/nonexistent/ffmpeg")
	defer SetFFmpegPath("")

	if _, err := FindFFmpeg(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
	if IsAvailable() {
		t.Error("IsAvailable should be false for a missing custom path")
	}
}

func TestDecoder_AdmitSkipsLeadingPictures(t *testing.T) {
	d := New()

	steps := []struct {
		pkt  ports.Packet
		want bool
	}{
		{ports.Packet{PTS: 80}, false},                 // before any keyframe
		{ports.Packet{PTS: 200, Keyframe: true}, true}, // session start
		{ports.Packet{PTS: 120}, false},                // leading B picture of an open GOP
		{ports.Packet{PTS: 160}, false},
		{ports.Packet{PTS: 360}, true},
		{ports.Packet{PTS: 280}, true},
		{ports.Packet{PTS: 240}, true},
	}
	for i, step := range steps {
		if got := d.admit(&step.pkt); got != step.want {
			t.Errorf("step %d (pts %d): admit = %v, want %v", i, step.pkt.PTS, got, step.want)
		}
	}

	// A flush starts a new session at the next keyframe.
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if d.admit(&ports.Packet{PTS: 400}) {
		t.Error("non-keyframe admitted after flush")
	}
	if !d.admit(&ports.Packet{PTS: 40, Keyframe: true}) {
		t.Error("keyframe rejected after flush")
	}
	if !d.admit(&ports.Packet{PTS: 80}) {
		t.Error("picture after the new keyframe rejected")
	}
}

func TestPTSHeap(t *testing.T) {
	h := &ptsHeap{}
	for _, v := range []int64{3, 1, 4, 0, 2} {
		heap.Push(h, v)
	}
	for want := int64(0); want < 5; want++ {
		if got := heap.Pop(h).(int64); got != want {
			t.Fatalf("Pop = %d, want %d", got, want)
		}
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs(64, 48)
	want := map[string]string{"-f": "h264", "-i": "pipe:0", "-pix_fmt": "yuv420p", "-s": "64x48"}
	for i := 0; i < len(args)-1; i++ {
		if v, ok := want[args[i]]; ok && args[i+1] == v {
			delete(want, args[i])
		}
	}
	if len(want) != 0 {
		t.Errorf("missing arguments %v in %v", want, args)
	}
}
