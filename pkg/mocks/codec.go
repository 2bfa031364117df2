package mocks

import (
	"image"
	"io"
	"sync"

	"github.com/user/vidseq/pkg/ports"
)

// Codec is a mock implementation of ports.Codec. Each packet decodes to one
// frame whose pixels all carry the first payload byte. Delay holds frames
// back until that many later packets have arrived, like a decoder with
// reordering latency.
type Codec struct {
	mu sync.Mutex

	Width  int
	Height int
	Delay  int

	// FrameFunc builds the picture for a packet. The default is a 4:2:0
	// YCbCr image filled with Data[0].
	FrameFunc func(pkt *ports.Packet) image.Image

	OpenFunc        func(stream ports.StreamInfo) error
	SendPacketFunc  func(pkt *ports.Packet) error
	ReceiveFrameErr error

	pending  []*ports.Packet
	draining bool

	// Recorded calls for verification
	Opened      ports.StreamInfo
	SentPackets int
	Received    int
	Released    int
	FlushCalls  int
	CloseCalls  int
}

// NewCodec creates a mock codec producing width x height frames.
func NewCodec(width, height int) *Codec {
	return &Codec{Width: width, Height: height}
}

// Factory returns a CodecFactory that always yields m.
func (m *Codec) Factory() ports.CodecFactory {
	return func(codec ports.CodecID) (ports.Codec, error) {
		return m, nil
	}
}

func (m *Codec) Open(stream ports.StreamInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opened = stream
	if m.OpenFunc != nil {
		return m.OpenFunc(stream)
	}
	return nil
}

func (m *Codec) SendPacket(pkt *ports.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendPacketFunc != nil {
		if err := m.SendPacketFunc(pkt); err != nil {
			return err
		}
	}
	if pkt == nil {
		m.draining = true
		return nil
	}
	m.SentPackets++
	m.pending = append(m.pending, pkt)
	return nil
}

func (m *Codec) ReceiveFrame() (ports.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReceiveFrameErr != nil {
		return ports.Frame{}, m.ReceiveFrameErr
	}
	if len(m.pending) == 0 || (!m.draining && len(m.pending) <= m.Delay) {
		if m.draining {
			return ports.Frame{}, io.EOF
		}
		return ports.Frame{}, ports.ErrAgain
	}

	pkt := m.pending[0]
	m.pending = m.pending[1:]
	m.Received++

	var img image.Image
	if m.FrameFunc != nil {
		img = m.FrameFunc(pkt)
	} else {
		img = FilledYCbCr(m.Width, m.Height, pkt.Data[0])
	}
	return ports.Frame{
		Image: img,
		PTS:   pkt.PTS,
		Release: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.Released++
		},
	}, nil
}

func (m *Codec) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FlushCalls++
	m.pending = nil
	m.draining = false
	return nil
}

func (m *Codec) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

var _ ports.Codec = (*Codec)(nil)

// FilledYCbCr returns a 4:2:0 picture whose planes all hold v.
func FilledYCbCr(width, height int, v byte) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for _, plane := range [][]byte{img.Y, img.Cb, img.Cr} {
		for i := range plane {
			plane[i] = v
		}
	}
	return img
}

// Packets builds n single-byte packets at pts i*ptsStep, payload byte
// i+1, with a keyframe every gop packets.
func Packets(n int, ptsStep int64, gop int) []*ports.Packet {
	pkts := make([]*ports.Packet, n)
	for i := range pkts {
		pkts[i] = &ports.Packet{
			PTS:      int64(i) * ptsStep,
			DTS:      int64(i) * ptsStep,
			Duration: ptsStep,
			Keyframe: i%gop == 0,
			Data:     []byte{byte(i + 1)},
		}
	}
	return pkts
}

// NeutralYCbCr returns a 4:2:0 picture with luma v and neutral chroma, so
// that every RGB or gray conversion of it yields v.
func NeutralYCbCr(width, height int, v byte) *image.YCbCr {
	img := FilledYCbCr(width, height, 128)
	for i := range img.Y {
		img.Y[i] = v
	}
	return img
}
