package smartdecoder

import (
	"errors"
	"testing"

	"github.com/user/vidseq/pkg/ports"
)

func TestNewAV1(t *testing.T) {
	codec, info, err := New(ports.CodecAV1, Options{})
	if err != nil {
		t.Fatalf("failed to create AV1 decoder: %v", err)
	}
	if codec == nil {
		t.Fatal("codec is nil")
	}
	defer codec.Close()

	if info.Codec != ports.CodecAV1 {
		t.Errorf("expected codec AV1, got %s", info.Codec)
	}
	if info.Backend != BackendLibaom {
		t.Errorf("expected backend libaom, got %s", info.Backend)
	}
}

func TestNewH264(t *testing.T) {
	if !IsH264Available() {
		t.Skip("H.264 decoder not available")
	}

	codec, info, err := New(ports.CodecH264, Options{})
	if err != nil {
		t.Fatalf("failed to create H.264 decoder: %v", err)
	}
	defer codec.Close()

	if info.Backend != BackendFFmpeg {
		t.Errorf("expected backend ffmpeg, got %s", info.Backend)
	}
}

func TestNewUnknown(t *testing.T) {
	for _, c := range []ports.CodecID{ports.CodecUnknown, ports.CodecHEVC, "vp9"} {
		_, _, err := New(c, Options{})
		if !errors.Is(err, ErrUnsupportedCodec) {
			t.Errorf("%s: expected ErrUnsupportedCodec, got %v", c, err)
		}
	}
}

func TestFactory(t *testing.T) {
	factory := Factory(Options{})

	codec, err := factory(ports.CodecAV1)
	if err != nil {
		t.Fatalf("factory(av1) failed: %v", err)
	}
	codec.Close()

	if _, err := factory(ports.CodecUnknown); !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestIsAV1Available(t *testing.T) {
	if !IsAV1Available() {
		t.Error("AV1 should always be available")
	}
}
