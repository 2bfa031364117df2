package smartencoder

import (
	"errors"
	"testing"

	"github.com/user/vidseq/pkg/ports"
)

func TestNewAV1Encoder(t *testing.T) {
	encoder, info, err := New(ports.CodecAV1, Options{})
	if err != nil {
		t.Fatalf("failed to create AV1 encoder: %v", err)
	}
	if encoder == nil {
		t.Fatal("encoder is nil")
	}
	if info.Codec != ports.CodecAV1 {
		t.Errorf("expected codec AV1, got %s", info.Codec)
	}
	if info.Backend != BackendLibaom {
		t.Errorf("expected backend libaom, got %s", info.Backend)
	}
	if info.FallbackUsed {
		t.Error("fallback should not be used for AV1")
	}
}

func TestNewH264Encoder(t *testing.T) {
	encoder, info, err := New(ports.CodecH264, Options{})
	if err != nil {
		t.Fatalf("failed to create H.264 encoder: %v", err)
	}
	if encoder == nil {
		t.Fatal("encoder is nil")
	}

	if info.RequestedCodec != ports.CodecH264 {
		t.Errorf("expected requested codec H.264, got %s", info.RequestedCodec)
	}
	if IsH264Available() {
		if info.Codec != ports.CodecH264 || info.FallbackUsed {
			t.Errorf("expected ffmpeg H.264, got %+v", info)
		}
	} else if info.Codec != ports.CodecAV1 || !info.FallbackUsed {
		t.Errorf("expected AV1 fallback, got %+v", info)
	}
}

func TestNewH264EncoderNoFallback(t *testing.T) {
	if IsH264Available() {
		t.Skip("ffmpeg is available")
	}
	_, _, err := New(ports.CodecH264, Options{NoFallback: true})
	if !errors.Is(err, ErrNoEncoderAvailable) {
		t.Errorf("expected ErrNoEncoderAvailable, got %v", err)
	}
}

func TestNewUnknownCodec(t *testing.T) {
	_, _, err := New(ports.CodecHEVC, Options{})
	if !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestIsAV1Available(t *testing.T) {
	if !IsAV1Available() {
		t.Error("AV1 should always be available")
	}
}
