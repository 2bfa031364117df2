package pipeline

import (
	"image/color"

	"github.com/user/vidseq/pkg/crop"
	"github.com/user/vidseq/pkg/raster"
)

// =============================================================================
// Load Stage Types
// =============================================================================

// SampleSpec names one sequence to load: a source file and the logical
// index of its first frame.
type SampleSpec struct {
	Path       string
	StartFrame int64
}

// LoadInput contains the samples of one batch.
type LoadInput struct {
	Samples []SampleSpec

	// Buffer receives the decoded batch. When it is shorter than the batch
	// needs, the stage allocates a new one.
	Buffer []byte
}

// LoadResult contains one decoded batch.
type LoadResult struct {
	// Batch is the zero-based index of this batch within the run.
	Batch int

	// Data holds every sample back to back, in input order.
	Data []byte

	// Seeds is the crop seed table the batch was sampled with.
	Seeds []uint64

	Samples []SampleResult
	Failed  int
}

// SampleResult describes where one sample landed in LoadResult.Data.
type SampleResult struct {
	SampleSpec

	Window crop.Window
	Width  int
	Height int
	Format raster.PixelFormat

	// Offset and Size locate the sample's SequenceLength frames in Data.
	Offset    int
	FrameSize int
	Size      int

	// Kept is the number of decoded frames; the rest of the slots are zero.
	Kept int

	// Err is set when the sample could not be decoded. Its bytes are zero.
	Err error
}

// =============================================================================
// Synth Stage Types
// =============================================================================

// SynthInput describes a generated test clip.
type SynthInput struct {
	Width            int
	Height           int
	Frames           int
	FPS              float64
	KeyframeInterval int
	Quality          int
	Bitrate          int
	Theme            SynthTheme
}

// DefaultSynthInput returns SynthInput with default values.
func DefaultSynthInput() SynthInput {
	return SynthInput{
		Width:            320,
		Height:           240,
		Frames:           60,
		FPS:              25,
		KeyframeInterval: 12,
		Quality:          30,
		Theme:            DefaultSynthTheme(),
	}
}

// SynthTheme defines the colours of generated frames.
type SynthTheme struct {
	BackgroundColor color.Color
	BoxColor        color.Color
	TextColor       color.Color
}

// DefaultSynthTheme returns a default synth theme.
func DefaultSynthTheme() SynthTheme {
	return SynthTheme{
		BackgroundColor: color.RGBA{R: 26, G: 26, B: 46, A: 255},
		BoxColor:        color.RGBA{R: 74, G: 222, B: 128, A: 255},
		TextColor:       color.White,
	}
}

// SynthResult contains the encoded clip.
type SynthResult struct {
	VideoData  []byte
	Frames     int
	DurationMs int
	FileSize   int64
}
