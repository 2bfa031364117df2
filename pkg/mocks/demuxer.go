package mocks

import (
	"fmt"
	"io"
	"sync"

	"github.com/user/vidseq/pkg/ports"
)

// Demuxer is a mock implementation of ports.Demuxer over an in-memory
// packet list. Packets must be listed in decode order.
type Demuxer struct {
	mu sync.Mutex

	Info    []ports.StreamInfo
	Packets []*ports.Packet
	pos     int

	BestVideoStreamFunc func() (ports.StreamInfo, error)
	ReadPacketFunc      func() (*ports.Packet, error)
	SeekFunc            func(timestamp int64, backward bool) error
	CloseFunc           func() error

	// Recorded calls for verification
	SeekCalls   []SeekCall
	PacketsRead int
	CloseCalls  int
}

// SeekCall records a call to Seek.
type SeekCall struct {
	Timestamp int64
	Backward  bool
}

// NewDemuxer creates a mock with one video stream holding packets.
func NewDemuxer(stream ports.StreamInfo, packets []*ports.Packet) *Demuxer {
	return &Demuxer{
		Info:    []ports.StreamInfo{stream},
		Packets: packets,
	}
}

// Opener returns an OpenDemuxerFunc that always yields m.
func (m *Demuxer) Opener() ports.OpenDemuxerFunc {
	return func(path string) (ports.Demuxer, error) {
		return m, nil
	}
}

func (m *Demuxer) Streams() []ports.StreamInfo {
	return m.Info
}

func (m *Demuxer) BestVideoStream() (ports.StreamInfo, error) {
	if m.BestVideoStreamFunc != nil {
		return m.BestVideoStreamFunc()
	}
	if len(m.Info) == 0 {
		return ports.StreamInfo{}, ports.ErrNoVideoStream
	}
	return m.Info[0], nil
}

func (m *Demuxer) ReadPacket() (*ports.Packet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacketsRead++
	if m.ReadPacketFunc != nil {
		return m.ReadPacketFunc()
	}
	if m.pos >= len(m.Packets) {
		return nil, io.EOF
	}
	p := m.Packets[m.pos]
	m.pos++
	return p, nil
}

// Seek moves to the last keyframe of the first stream whose PTS is at or
// before the target, or to the first one at or after it when backward is
// false.
func (m *Demuxer) Seek(timestamp int64, backward bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SeekCalls = append(m.SeekCalls, SeekCall{Timestamp: timestamp, Backward: backward})
	if m.SeekFunc != nil {
		return m.SeekFunc(timestamp, backward)
	}
	if len(m.Info) == 0 {
		return ports.ErrNoVideoStream
	}
	s := m.Info[0]
	target := ports.Rescale(timestamp, ports.MicrosecondBase, s.TimeBase)

	pos := -1
	for i, p := range m.Packets {
		if p.StreamIndex != s.Index || !p.Keyframe {
			continue
		}
		if backward {
			if p.PTS <= target || pos < 0 {
				pos = i
			}
			continue
		}
		if p.PTS >= target {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("mock seek: no keyframe for %d", timestamp)
	}
	m.pos = pos
	return nil
}

func (m *Demuxer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
