package ports

import (
	"image"
)

// DebugSink stores intermediate results of a loading run for inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveCropOverlay saves the first frame of a sample with its crop window outlined.
	SaveCropOverlay(sample int, frame image.Image, window image.Rectangle) error

	// SaveSequenceFrame saves one output frame of a sample.
	SaveSequenceFrame(sample, index int, img image.Image) error

	// SaveBatchManifest saves the description of one batch as JSON.
	SaveBatchManifest(batch int, data []byte) error
}
