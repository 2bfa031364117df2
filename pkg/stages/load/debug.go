package load

import (
	"encoding/json"
	"image"

	"github.com/user/vidseq/pkg/crop"
	"github.com/user/vidseq/pkg/pipeline"
	"github.com/user/vidseq/pkg/raster"
	"github.com/user/vidseq/pkg/seqdecode"
)

// saveDebug writes the crop overlay and the kept frames of one sample.
// Failures are logged and never fail the sample.
func (s *Stage) saveDebug(dec *seqdecode.Decoder, id int, smp pipeline.SampleResult, slot []byte, kept int) {
	frame, err := s.overview(dec, smp)
	if err != nil {
		s.logger.Debug("Skipping overlay for sample %d: %v", id, err)
	} else {
		var window image.Rectangle
		if s.cropping() {
			window = smp.Window.Rect()
		}
		if err := s.sink.SaveCropOverlay(id, frame, window); err != nil {
			s.logger.Debug("Skipping overlay for sample %d: %v", id, err)
		}
	}

	if smp.Format == raster.FormatYUV420P {
		return
	}
	for i := 0; i < kept; i++ {
		img, err := raster.Wrap(slot[i*smp.FrameSize:(i+1)*smp.FrameSize], smp.Format, smp.Width, smp.Height, 0)
		if err != nil {
			return
		}
		if err := s.sink.SaveSequenceFrame(id, i, img); err != nil {
			s.logger.Debug("Skipping frame %d of sample %d: %v", i, id, err)
		}
	}
}

// overview decodes the first frame of a sample uncropped at native size.
func (s *Stage) overview(dec *seqdecode.Decoder, smp pipeline.SampleResult) (image.Image, error) {
	w, h := dec.CodecWidth(), dec.CodecHeight()
	buf := make([]byte, raster.FrameSize(raster.FormatRGBA32, w, h, 0))

	window := dec.CropWindow()
	dec.SetCropWindow(crop.Window{})
	defer dec.SetCropWindow(window)

	err := dec.Decode(buf, seqdecode.Request{
		SeekFrame:      smp.StartFrame,
		SequenceLength: 1,
		Stride:         1,
		Width:          w,
		Height:         h,
		Format:         raster.FormatRGBA32,
	})
	if err != nil {
		return nil, err
	}
	return raster.Wrap(buf, raster.FormatRGBA32, w, h, 0)
}

type manifest struct {
	Batch          int              `json:"batch"`
	Variant        string           `json:"variant"`
	CropType       string           `json:"crop_type"`
	SequenceLength int              `json:"sequence_length"`
	Stride         int              `json:"stride"`
	Seeds          []uint64         `json:"seeds"`
	Failed         int              `json:"failed"`
	Samples        []manifestSample `json:"samples"`
}

type manifestSample struct {
	Path       string         `json:"path"`
	StartFrame int64          `json:"start_frame"`
	Window     manifestWindow `json:"window"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Format     string         `json:"format"`
	Offset     int            `json:"offset"`
	Size       int            `json:"size"`
	Kept       int            `json:"kept"`
	Error      string         `json:"error,omitempty"`
}

type manifestWindow struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Manifest describes a loaded batch as indented JSON: where every sample
// sits in the batch buffer and the window it was cropped with.
func Manifest(result pipeline.LoadResult, opts Options, cropType crop.Type) ([]byte, error) {
	m := manifest{
		Batch:          result.Batch,
		Variant:        opts.Variant.String(),
		CropType:       cropType.String(),
		SequenceLength: opts.SequenceLength,
		Stride:         opts.Stride,
		Seeds:          result.Seeds,
		Failed:         result.Failed,
		Samples:        make([]manifestSample, len(result.Samples)),
	}
	for i, smp := range result.Samples {
		ms := manifestSample{
			Path:       smp.Path,
			StartFrame: smp.StartFrame,
			Window:     manifestWindow{X: smp.Window.X, Y: smp.Window.Y, W: smp.Window.W, H: smp.Window.H},
			Width:      smp.Width,
			Height:     smp.Height,
			Format:     smp.Format.String(),
			Offset:     smp.Offset,
			Size:       smp.Size,
			Kept:       smp.Kept,
		}
		if smp.Err != nil {
			ms.Error = smp.Err.Error()
		}
		m.Samples[i] = ms
	}
	return json.MarshalIndent(m, "", "  ")
}

// Options returns the effective options after defaults were applied.
func (s *Stage) Options() Options { return s.opts }

// CropType returns the sampler's crop type.
func (s *Stage) CropType() crop.Type { return s.sampler.Type() }
