// Package smartdecoder selects a ports.Codec implementation for a bitstream.
package smartdecoder

import (
	"errors"

	"github.com/user/vidseq/pkg/adapters/av1decoder"
	"github.com/user/vidseq/pkg/adapters/codecdetect"
	"github.com/user/vidseq/pkg/adapters/h264decoder"
	"github.com/user/vidseq/pkg/ports"
)

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendFFmpeg represents an ffmpeg subprocess.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = "libaom"
)

// Info describes the selected codec.
type Info struct {
	Codec   ports.CodecID
	Backend Backend
}

// Options configures the smart decoder behavior.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
}

var (
	// ErrUnsupportedCodec is returned when no implementation exists for the codec.
	ErrUnsupportedCodec = ports.ErrUnsupportedCodec
	// ErrNoDecoderAvailable is returned when the implementation exists but its backend is missing.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// New creates an unopened codec.
//
// The selection flow:
//   - AV1: libaom
//   - H.264: ffmpeg, when a binary can be found
func New(codec ports.CodecID, opts Options) (ports.Codec, Info, error) {
	if opts.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(opts.FFmpegPath)
	}

	switch codec {
	case ports.CodecAV1:
		return av1decoder.New(), Info{Codec: codec, Backend: BackendLibaom}, nil

	case ports.CodecH264:
		if !h264decoder.IsAvailable() {
			return nil, Info{}, ErrNoDecoderAvailable
		}
		return h264decoder.New(), Info{Codec: codec, Backend: BackendFFmpeg}, nil

	default:
		return nil, Info{}, ErrUnsupportedCodec
	}
}

// Factory returns a ports.CodecFactory bound to opts.
func Factory(opts Options) ports.CodecFactory {
	return func(codec ports.CodecID) (ports.Codec, error) {
		c, _, err := New(codec, opts)
		return c, err
	}
}

// DetectCodec detects the codec from a file without creating a decoder.
func DetectCodec(path string) (ports.CodecID, error) {
	return codecdetect.DetectFromFile(path)
}

// IsH264Available checks if H.264 decoding is available.
func IsH264Available() bool {
	return h264decoder.IsAvailable()
}

// IsAV1Available always returns true (libaom is always linked).
func IsAV1Available() bool {
	return true
}
