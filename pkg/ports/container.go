package ports

import (
	"errors"
	"math/big"

	"github.com/user/vidseq/pkg/raster"
)

// CodecID names a compressed video bitstream format.
type CodecID string

const (
	CodecH264    CodecID = "h264"
	CodecAV1     CodecID = "av1"
	CodecHEVC    CodecID = "hevc"
	CodecUnknown CodecID = "unknown"
)

// Rational is a fraction used for time bases and frame rates.
type Rational struct {
	Num int64
	Den int64
}

// MicrosecondBase is the time base of container-level seek targets.
var MicrosecondBase = Rational{Num: 1, Den: 1_000_000}

// Valid reports whether both terms are non-zero.
func (r Rational) Valid() bool {
	return r.Num != 0 && r.Den != 0
}

// Float64 returns the value of the fraction. An invalid fraction yields 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns Den/Num.
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// Rescale converts a from units of src to units of dst, rounding to the
// nearest integer with halves away from zero. Intermediate products are
// computed without overflow.
func Rescale(a int64, src, dst Rational) int64 {
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(src.Num))
	num.Mul(num, big.NewInt(dst.Den))
	den := new(big.Int).Mul(big.NewInt(src.Den), big.NewInt(dst.Num))
	if den.Sign() == 0 {
		return 0
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}

	half := new(big.Int).Rsh(den, 1)
	if num.Sign() < 0 {
		num.Sub(num, half)
	} else {
		num.Add(num, half)
	}
	return num.Quo(num, den).Int64()
}

// StreamInfo describes one elementary stream of a container.
type StreamInfo struct {
	Index  int
	Codec  CodecID
	Width  int
	Height int

	// TimeBase is the unit of packet and frame timestamps.
	TimeBase Rational
	// AvgFrameRate is frames per second.
	AvgFrameRate Rational

	// PixelFormat is the layout decoded frames arrive in. FormatUnknown
	// when the container does not record it.
	PixelFormat raster.PixelFormat

	// Extradata is the codec configuration record, if any.
	Extradata []byte

	FrameCount int64
	// Duration is in TimeBase units.
	Duration int64
}

// Packet is one compressed access unit.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Duration    int64
	Keyframe    bool
	Data        []byte
}

// ErrNoVideoStream is returned by BestVideoStream when the container has no video.
var ErrNoVideoStream = errors.New("ports: no video stream")

// Demuxer reads packets from a media container.
type Demuxer interface {
	// Streams lists every stream of the container.
	Streams() []StreamInfo

	// BestVideoStream returns the primary video stream.
	BestVideoStream() (StreamInfo, error)

	// ReadPacket returns the next packet in decode order, or io.EOF.
	ReadPacket() (*Packet, error)

	// Seek repositions reading. The timestamp is in MicrosecondBase units.
	// With backward set, reading resumes at the last keyframe at or before
	// the target; otherwise at the first keyframe at or after it.
	Seek(timestamp int64, backward bool) error

	// Close releases the container.
	Close() error
}

// OpenDemuxerFunc opens a container by path.
type OpenDemuxerFunc func(path string) (Demuxer, error)
