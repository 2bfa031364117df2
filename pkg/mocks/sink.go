package mocks

import (
	"image"
	"sync"

	"github.com/user/vidseq/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Overlays       map[int]image.Rectangle
	SequenceFrames map[[2]int]image.Image
	Manifests      map[int][]byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		Overlays:       make(map[int]image.Rectangle),
		SequenceFrames: make(map[[2]int]image.Image),
		Manifests:      make(map[int][]byte),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveCropOverlay(sample int, frame image.Image, window image.Rectangle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Overlays[sample] = window
	return nil
}

func (m *DebugSink) SaveSequenceFrame(sample, index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SequenceFrames[[2]int{sample, index}] = img
	return nil
}

func (m *DebugSink) SaveBatchManifest(batch int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Manifests[batch] = data
	return nil
}

// FrameCount returns the number of saved sequence frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SequenceFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
