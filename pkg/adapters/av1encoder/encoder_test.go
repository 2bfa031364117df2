package av1encoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/user/vidseq/pkg/adapters/mp4demux"
	"github.com/user/vidseq/pkg/ports"
)

func TestNew(t *testing.T) {
	encoder := New()
	if encoder == nil {
		t.Fatal("expected encoder to be created")
	}
}

func TestEncoder_Begin(t *testing.T) {
	encoder := New()

	err := encoder.Begin(128, 128, 30.0, ports.EncoderOptions{
		Quality: 30,
		Bitrate: 1000,
	})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	encoder.cleanup()
}

func TestEncoder_NotInitialized(t *testing.T) {
	encoder := New()
	if err := encoder.EncodeFrame(createTestImage(8, 8, color.RGBA{A: 255}), 0); err == nil {
		t.Error("expected error when encoding without Begin")
	}
	if _, err := encoder.End(); err == nil {
		t.Error("expected error when ending without Begin")
	}
}

func TestEncoder_FragmentPerGOP(t *testing.T) {
	encoder := New()
	if err := encoder.Begin(64, 48, 25.0, ports.EncoderOptions{Quality: 40, KeyframeInterval: 4}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		c := color.RGBA{R: uint8(i * 25), G: 128, B: 64, A: 255}
		if err := encoder.EncodeFrame(createTestImage(64, 48, c), i*40); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}

	data, err := encoder.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	demux, err := mp4demux.NewFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("demux failed: %v", err)
	}
	info, err := demux.BestVideoStream()
	if err != nil {
		t.Fatalf("BestVideoStream failed: %v", err)
	}
	if info.Codec != ports.CodecAV1 || info.Width != 64 || info.Height != 48 {
		t.Errorf("stream = %s %dx%d", info.Codec, info.Width, info.Height)
	}
	if info.FrameCount != 10 {
		t.Errorf("FrameCount = %d, want 10", info.FrameCount)
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
		if pkt.Keyframe {
			keyframes = append(keyframes, i)
		}
	}
	want := []int{0, 4, 8}
	if len(keyframes) != len(want) {
		t.Fatalf("keyframes at %v, want %v", keyframes, want)
	}
	for i := range want {
		if keyframes[i] != want[i] {
			t.Errorf("keyframes at %v, want %v", keyframes, want)
		}
	}
}

func TestExtractSequenceHeader(t *testing.T) {
	// temporal delimiter, then a sequence header OBU with a 2-byte payload
	data := []byte{0x12, 0x00, 0x0A, 0x02, 0xAA, 0xBB, 0x32, 0x01, 0xCC}
	got := extractSequenceHeader(data)
	want := []byte{0x0A, 0x02, 0xAA, 0xBB}
	if !bytes.Equal(got, want) {
		t.Errorf("extractSequenceHeader = %x, want %x", got, want)
	}

	if extractSequenceHeader([]byte{0x12}) != nil {
		t.Error("expected nil for short input")
	}
}

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
