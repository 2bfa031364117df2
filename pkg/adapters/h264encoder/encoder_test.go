package h264encoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"slices"
	"testing"

	"github.com/user/vidseq/pkg/adapters/mp4demux"
	"github.com/user/vidseq/pkg/ports"
)

// createTestImage creates a simple test image with gradient
func createTestImage(width, height int, frameNum int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x*255/width + frameNum*10) % 256)
			g := uint8((y*255/height + frameNum*5) % 256)
			b := uint8((x + y + frameNum*3) % 256)
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func skipWithoutFFmpeg(t testing.TB) {
	t.Helper()
	if !IsAvailable() {
		t.Skip("ffmpeg not available")
	}
}

func encode(t *testing.T, width, height, frames int, opts ports.EncoderOptions) []byte {
	t.Helper()
	enc := New()
	if err := enc.Begin(width, height, 25.0, opts); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for i := 0; i < frames; i++ {
		if err := enc.EncodeFrame(createTestImage(width, height, i), i*40); err != nil {
			t.Fatalf("EncodeFrame failed at frame %d: %v", i, err)
		}
	}
	data, err := enc.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	return data
}

func TestEncoderBasic(t *testing.T) {
	skipWithoutFFmpeg(t)

	data := encode(t, 320, 240, 30, ports.EncoderOptions{Quality: 25})
	if len(data) < 8 {
		t.Fatal("Output too small")
	}
	if string(data[4:8]) != "ftyp" {
		t.Errorf("Expected ftyp box, got: %s", string(data[4:8]))
	}
	t.Logf("Encoded 30 frames to %d bytes", len(data))
}

func TestEncoderKeyframeInterval(t *testing.T) {
	skipWithoutFFmpeg(t)

	data := encode(t, 64, 48, 12, ports.EncoderOptions{Quality: 20, KeyframeInterval: 4})

	demux, err := mp4demux.NewFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("demux failed: %v", err)
	}
	defer demux.Close()

	stream, err := demux.BestVideoStream()
	if err != nil {
		t.Fatalf("BestVideoStream failed: %v", err)
	}
	if stream.Codec != ports.CodecH264 {
		t.Errorf("expected h264, got %s", stream.Codec)
	}
	if stream.Width != 64 || stream.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", stream.Width, stream.Height)
	}
	if stream.FrameCount != 12 {
		t.Errorf("expected 12 frames, got %d", stream.FrameCount)
	}

	var keyframes []int
	for i := 0; ; i++ {
		pkt, err := demux.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		if !bytes.HasPrefix(pkt.Data, []byte{0, 0, 0, 1}) {
			t.Errorf("packet %d is not Annex B", i)
		}
		if pkt.Keyframe {
			keyframes = append(keyframes, i)
		}
	}
	if !slices.Equal(keyframes, []int{0, 4, 8}) {
		t.Errorf("expected keyframes [0 4 8], got %v", keyframes)
	}
}

func TestEncoderRejectsOddSize(t *testing.T) {
	enc := New()
	if err := enc.Begin(101, 100, 25, ports.EncoderOptions{}); err == nil {
		t.Error("expected error for odd width")
	}
	if err := enc.Begin(100, 100, 0, ports.EncoderOptions{}); err == nil {
		t.Error("expected error for zero frame rate")
	}
}

func TestEncoderNoFrames(t *testing.T) {
	skipWithoutFFmpeg(t)

	enc := New()
	if err := enc.Begin(64, 48, 25, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := enc.End(); err == nil {
		t.Error("expected error when ending without frames")
	}
}

func TestEncoderNotInitialized(t *testing.T) {
	enc := New()

	img := createTestImage(100, 100, 0)
	if err := enc.EncodeFrame(img, 0); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got: %v", err)
	}
	if _, err := enc.End(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got: %v", err)
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs(64, 48, 25, ports.EncoderOptions{Quality: 63, Bitrate: 500, KeyframeInterval: 5}, "out.mp4")

	for _, want := range [][]string{
		{"-s", "64x48"},
		{"-r", "25"},
		{"-crf", "51"},
		{"-b:v", "500k"},
		{"-g", "5"},
		{"-bf", "0"},
	} {
		i := slices.Index(args, want[0])
		if i < 0 || i+1 >= len(args) || args[i+1] != want[1] {
			t.Errorf("expected %s %s in %v", want[0], want[1], args)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("expected output path last, got %q", args[len(args)-1])
	}
}

func BenchmarkEncode320x240(b *testing.B) {
	skipWithoutFFmpeg(b)
	enc := New()
	width, height := 320, 240

	if err := enc.Begin(width, height, 30.0, ports.EncoderOptions{Quality: 25}); err != nil {
		b.Fatalf("Begin failed: %v", err)
	}

	img := createTestImage(width, height, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := enc.EncodeFrame(img, i*33); err != nil {
			b.Fatalf("EncodeFrame failed: %v", err)
		}
	}
	b.StopTimer()

	enc.End()
}
