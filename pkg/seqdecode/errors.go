package seqdecode

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen is returned when the container cannot be opened or probed.
	ErrOpen = errors.New("seqdecode: cannot open container")

	// ErrStreamNotFound is returned when the container has no usable video stream.
	ErrStreamNotFound = errors.New("seqdecode: no video stream")

	// ErrCodec is the parent of every codec resolution or open failure.
	ErrCodec = errors.New("seqdecode: codec failure")

	// ErrCodecNotFound is returned when no codec implements the stream's bitstream.
	ErrCodecNotFound = fmt.Errorf("%w: codec not found", ErrCodec)

	// ErrCodecOpen is returned when the codec rejects the stream parameters.
	ErrCodecOpen = fmt.Errorf("%w: cannot open codec", ErrCodec)

	// ErrAllocation is returned when codec state cannot be allocated.
	ErrAllocation = errors.New("seqdecode: allocation failed")

	// ErrSeek is returned when the container rejects a seek.
	ErrSeek = errors.New("seqdecode: seek failed")

	// ErrContext is returned when no conversion context exists for a request.
	ErrContext = errors.New("seqdecode: cannot build conversion context")

	// ErrDecode is returned for a packet or frame failure mid-stream.
	ErrDecode = errors.New("seqdecode: decode failed")

	// ErrNotInitialized is returned when Decode runs before Initialize.
	ErrNotInitialized = errors.New("seqdecode: decoder not initialized")

	// ErrInvalidRequest is returned for a malformed decode request.
	ErrInvalidRequest = errors.New("seqdecode: invalid request")

	// ErrBufferTooSmall is returned when the output cannot hold the sequence.
	ErrBufferTooSmall = fmt.Errorf("%w: output buffer too small", ErrInvalidRequest)
)

// Status is the numeric outcome of an engine call.
type Status int

const (
	StatusOK Status = iota
	StatusOpenFailed
	StatusStreamNotFound
	StatusCodecFailed
	StatusNoMemory
	StatusSeekFailed
	StatusContextFailed
	StatusDecodeFailed
	StatusInvalidRequest
)

var statusNames = [...]string{
	StatusOK:             "ok",
	StatusOpenFailed:     "open failed",
	StatusStreamNotFound: "stream not found",
	StatusCodecFailed:    "codec failed",
	StatusNoMemory:       "no memory",
	StatusSeekFailed:     "seek failed",
	StatusContextFailed:  "context failed",
	StatusDecodeFailed:   "decode failed",
	StatusInvalidRequest: "invalid request",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StatusOf maps an error returned by this package onto a Status.
// Errors from outside the taxonomy report StatusDecodeFailed.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrOpen):
		return StatusOpenFailed
	case errors.Is(err, ErrStreamNotFound):
		return StatusStreamNotFound
	case errors.Is(err, ErrCodec):
		return StatusCodecFailed
	case errors.Is(err, ErrAllocation):
		return StatusNoMemory
	case errors.Is(err, ErrSeek):
		return StatusSeekFailed
	case errors.Is(err, ErrContext):
		return StatusContextFailed
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrNotInitialized):
		return StatusInvalidRequest
	default:
		return StatusDecodeFailed
	}
}
