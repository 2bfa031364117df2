package ports

import (
	"errors"
	"image"
)

var (
	// ErrAgain is returned by ReceiveFrame when the codec needs more input.
	ErrAgain = errors.New("ports: codec needs more input")

	// ErrAllocation is returned when a codec cannot allocate its working state.
	ErrAllocation = errors.New("ports: allocation failed")

	// ErrUnsupportedCodec is returned by a CodecFactory for an unknown bitstream.
	ErrUnsupportedCodec = errors.New("ports: unsupported codec")
)

// Frame is one decoded picture. Image stays valid until Release is called;
// the receiver calls Release exactly once.
type Frame struct {
	Image   image.Image
	PTS     int64
	Release func()
}

// Codec is a send/receive video decoder.
type Codec interface {
	// Open prepares the codec for the given stream.
	Open(stream StreamInfo) error

	// SendPacket submits one packet. A nil packet starts draining.
	SendPacket(pkt *Packet) error

	// ReceiveFrame returns the next decoded frame, ErrAgain when more input
	// is needed, or io.EOF once fully drained.
	ReceiveFrame() (Frame, error)

	// Flush discards buffered state and leaves the codec ready for new input.
	Flush() error

	// Close releases the codec. It is safe to call more than once.
	Close() error
}

// CodecFactory creates an unopened codec for a bitstream format.
type CodecFactory func(codec CodecID) (Codec, error)
