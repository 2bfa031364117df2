// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/vidseq/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveCropOverlay does nothing.
func (s *Sink) SaveCropOverlay(sample int, frame image.Image, window image.Rectangle) error {
	return nil
}

// SaveSequenceFrame does nothing.
func (s *Sink) SaveSequenceFrame(sample, index int, img image.Image) error {
	return nil
}

// SaveBatchManifest does nothing.
func (s *Sink) SaveBatchManifest(batch int, data []byte) error {
	return nil
}

var _ ports.DebugSink = (*Sink)(nil)
