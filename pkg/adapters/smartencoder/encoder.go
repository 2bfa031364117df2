// Package smartencoder selects a video encoder for synthetic clips, falling
// back to AV1 when H.264 is unavailable.
package smartencoder

import (
	"errors"

	"github.com/user/vidseq/pkg/adapters/av1encoder"
	"github.com/user/vidseq/pkg/adapters/h264decoder"
	"github.com/user/vidseq/pkg/adapters/h264encoder"
	"github.com/user/vidseq/pkg/ports"
)

// Backend represents the encoding backend used.
type Backend string

const (
	// BackendFFmpeg represents FFmpeg-based encoding.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom represents libaom for AV1 encoding.
	BackendLibaom Backend = "libaom"
)

// Info contains information about the selected encoder.
type Info struct {
	// Codec is the actual codec being used.
	Codec ports.CodecID
	// Backend is the encoding backend being used.
	Backend Backend
	// RequestedCodec is the codec that was originally requested.
	RequestedCodec ports.CodecID
	// FallbackUsed indicates whether a fallback occurred.
	FallbackUsed bool
}

// Options configures the smart encoder behavior.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// NoFallback makes an unavailable H.264 encoder an error instead of
	// switching to AV1.
	NoFallback bool
	// Logger is used to log fallback warnings.
	Logger ports.Logger
}

var (
	// ErrNoEncoderAvailable is returned when no encoder is available.
	ErrNoEncoderAvailable = errors.New("smartencoder: no encoder available")
)

// New creates a video encoder for the preferred codec.
//
// AV1 always uses libaom. H.264 uses ffmpeg and, unless NoFallback is set,
// falls back to AV1 when no ffmpeg binary is found.
func New(preferred ports.CodecID, opts Options) (ports.VideoEncoder, Info, error) {
	if opts.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(opts.FFmpegPath)
	}

	switch preferred {
	case ports.CodecAV1:
		return av1encoder.New(), Info{
			Codec:          ports.CodecAV1,
			Backend:        BackendLibaom,
			RequestedCodec: ports.CodecAV1,
		}, nil
	case ports.CodecH264:
		return selectH264Encoder(opts)
	default:
		return nil, Info{}, ports.ErrUnsupportedCodec
	}
}

func selectH264Encoder(opts Options) (ports.VideoEncoder, Info, error) {
	if h264encoder.IsAvailable() {
		return h264encoder.New(), Info{
			Codec:          ports.CodecH264,
			Backend:        BackendFFmpeg,
			RequestedCodec: ports.CodecH264,
		}, nil
	}

	if opts.NoFallback {
		return nil, Info{}, ErrNoEncoderAvailable
	}

	if opts.Logger != nil {
		opts.Logger.Warn("H.264 encoder not available, falling back to AV1")
	}

	return av1encoder.New(), Info{
		Codec:          ports.CodecAV1,
		Backend:        BackendLibaom,
		RequestedCodec: ports.CodecH264,
		FallbackUsed:   true,
	}, nil
}

// IsH264Available checks if H.264 encoding is available.
func IsH264Available() bool {
	return h264encoder.IsAvailable()
}

// IsAV1Available always returns true (libaom is always linked).
func IsAV1Available() bool {
	return true
}
