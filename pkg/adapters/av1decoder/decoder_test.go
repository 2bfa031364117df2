package av1decoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/user/vidseq/pkg/adapters/av1encoder"
	"github.com/user/vidseq/pkg/adapters/mp4demux"
	"github.com/user/vidseq/pkg/ports"
)

func TestNew(t *testing.T) {
	decoder := New()
	if decoder == nil {
		t.Fatal("expected decoder to be created")
	}
}

func TestDecoder_OpenRejectsOtherCodecs(t *testing.T) {
	decoder := New()
	defer decoder.Close()

	err := decoder.Open(ports.StreamInfo{Codec: ports.CodecH264})
	if !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestDecoder_SendWithoutOpen(t *testing.T) {
	decoder := New()

	if err := decoder.SendPacket(&ports.Packet{Data: []byte{0x00}}); err == nil {
		t.Error("expected error when decoding without Open")
	}
}

func TestDecoder_ReceiveBeforeInput(t *testing.T) {
	decoder := New()
	if err := decoder.Open(ports.StreamInfo{Codec: ports.CodecAV1}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer decoder.Close()

	if _, err := decoder.ReceiveFrame(); !errors.Is(err, ports.ErrAgain) {
		t.Errorf("expected ErrAgain, got %v", err)
	}
	if err := decoder.SendPacket(&ports.Packet{}); err == nil {
		t.Error("expected error for empty packet")
	}
}

func TestDecoder_Close(t *testing.T) {
	decoder := New()
	if err := decoder.Open(ports.StreamInfo{Codec: ports.CodecAV1}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	decoder.Close()
	decoder.Close() // Double close should be safe
}

// encodeClip returns a fragmented AV1 MP4 of solid frames, one colour per frame.
func encodeClip(t *testing.T, colors []color.RGBA, gop int) []byte {
	t.Helper()
	encoder := av1encoder.New()
	if err := encoder.Begin(64, 64, 25.0, ports.EncoderOptions{Quality: 20, KeyframeInterval: gop}); err != nil {
		t.Fatalf("Encoder Begin failed: %v", err)
	}
	for i, c := range colors {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
		}
		if err := encoder.EncodeFrame(img, i*40); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}
	data, err := encoder.End()
	if err != nil {
		t.Fatalf("Encoder End failed: %v", err)
	}
	return data
}

// drain sends every remaining packet and collects all frames.
func drain(t *testing.T, demux ports.Demuxer, decoder *Decoder) []ports.Frame {
	t.Helper()
	var frames []ports.Frame
	receive := func() {
		for {
			f, err := decoder.ReceiveFrame()
			if errors.Is(err, ports.ErrAgain) || errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				t.Fatalf("ReceiveFrame failed: %v", err)
			}
			frames = append(frames, f)
		}
	}

	for {
		pkt, err := demux.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		if err := decoder.SendPacket(pkt); err != nil {
			t.Fatalf("SendPacket failed: %v", err)
		}
		receive()
	}
	if err := decoder.SendPacket(nil); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	receive()
	return frames
}

func TestDecoder_RoundTrip(t *testing.T) {
	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
		{R: 128, G: 128, B: 128, A: 255},
		{R: 255, B: 255, A: 255},
	}
	demux, err := mp4demux.NewFromReader(bytes.NewReader(encodeClip(t, colors, 3)))
	if err != nil {
		t.Fatalf("demux failed: %v", err)
	}
	info, err := demux.BestVideoStream()
	if err != nil {
		t.Fatalf("BestVideoStream failed: %v", err)
	}

	decoder := New()
	if err := decoder.Open(info); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer decoder.Close()

	frames := drain(t, demux, decoder)
	if len(frames) != len(colors) {
		t.Fatalf("decoded %d frames, want %d", len(frames), len(colors))
	}

	for i, f := range frames {
		ycc, ok := f.Image.(*image.YCbCr)
		if !ok {
			t.Fatalf("frame %d: expected *image.YCbCr, got %T", i, f.Image)
		}
		if ycc.Rect.Dx() != 64 || ycc.Rect.Dy() != 64 {
			t.Errorf("frame %d: size %v", i, ycc.Rect)
		}
		if i > 0 && f.PTS <= frames[i-1].PTS {
			t.Errorf("frame %d: pts %d not after %d", i, f.PTS, frames[i-1].PTS)
		}

		// Lossy, but the dominant channel survives.
		got := color.RGBAModel.Convert(ycc.At(32, 32)).(color.RGBA)
		want := colors[i]
		for _, ch := range [][2]uint8{{got.R, want.R}, {got.G, want.G}, {got.B, want.B}} {
			if d := int(ch[0]) - int(ch[1]); d < -40 || d > 40 {
				t.Errorf("frame %d: center %v, want about %v", i, got, want)
				break
			}
		}
		f.Release()
	}

	if _, err := decoder.ReceiveFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after drain, got %v", err)
	}

	// After a flush the decoder accepts input again from a keyframe.
	if err := decoder.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := demux.Seek(3*40_000, true); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	again := drain(t, demux, decoder)
	if len(again) != 3 {
		t.Errorf("decoded %d frames after seek, want 3", len(again))
	}
}
