// Package load implements the batch loading stage: it samples a crop window
// for every sequence of a batch and decodes the batch into one buffer with
// a pool of decoders.
package load

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/user/vidseq/pkg/crop"
	"github.com/user/vidseq/pkg/pipeline"
	"github.com/user/vidseq/pkg/ports"
	"github.com/user/vidseq/pkg/raster"
	"github.com/user/vidseq/pkg/seqdecode"
)

var (
	// ErrInvalidOptions is returned by NewStage for an unusable configuration.
	ErrInvalidOptions = errors.New("load: invalid options")

	// ErrBatchTooLarge is returned when a batch has more samples than the
	// crop seed table has slots.
	ErrBatchTooLarge = errors.New("load: batch larger than the crop seed table")
)

// Options configures a Stage.
type Options struct {
	Variant seqdecode.Variant
	Crop    crop.Options
	Seed    int64

	SequenceLength int
	Stride         int

	// Width and Height fix the output size of every frame. When both are
	// zero the output keeps the size of the decoded region, scaled so that
	// its shorter side is ResizeShorter when that is set.
	Width         int
	Height        int
	ResizeShorter int

	// Format of the output frames. FormatUnknown selects RGB24.
	Format raster.PixelFormat

	Workers int
}

// Stage loads batches of sequences. A Stage keeps the crop sampler state
// between batches and must be driven from a single goroutine.
type Stage struct {
	opts    Options
	decOpts seqdecode.Options
	sampler *crop.Sampler
	sink    ports.DebugSink
	logger  ports.Logger

	streams map[string]probeResult
	batches int
}

var _ pipeline.Stage[pipeline.LoadInput, pipeline.LoadResult] = (*Stage)(nil)

type probeResult struct {
	info ports.StreamInfo
	err  error
}

// NewStage creates a new load stage. dec supplies the container and codec
// implementations each worker's decoder is built from.
func NewStage(dec seqdecode.Options, sink ports.DebugSink, logger ports.Logger, opts Options) (*Stage, error) {
	if dec.Open == nil || dec.Codecs == nil {
		return nil, fmt.Errorf("%w: no container or codec implementation", ErrInvalidOptions)
	}
	if opts.SequenceLength <= 0 {
		return nil, fmt.Errorf("%w: sequence length %d", ErrInvalidOptions, opts.SequenceLength)
	}
	if opts.Stride == 0 {
		opts.Stride = 1
	}
	if opts.Stride < 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrInvalidOptions, opts.Stride)
	}
	if opts.Width < 0 || opts.Height < 0 || (opts.Width > 0) != (opts.Height > 0) {
		return nil, fmt.Errorf("%w: output size %dx%d", ErrInvalidOptions, opts.Width, opts.Height)
	}
	if opts.ResizeShorter < 0 || (opts.ResizeShorter > 0 && opts.Width > 0) {
		return nil, fmt.Errorf("%w: resize_shorter %d with output size %dx%d", ErrInvalidOptions, opts.ResizeShorter, opts.Width, opts.Height)
	}
	if opts.Format == raster.FormatUnknown {
		opts.Format = raster.FormatRGB24
	}
	if opts.Variant == seqdecode.VariantFusedCropResize && opts.Format == raster.FormatYUV420P {
		return nil, fmt.Errorf("%w: %s output cannot be crop-resized", ErrInvalidOptions, opts.Format)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	sampler, err := crop.NewSampler(crop.NewSeedGenerator(opts.Seed), opts.Crop)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	if dec.Logger == nil {
		dec.Logger = logger
	}
	return &Stage{
		opts:    opts,
		decOpts: dec,
		sampler: sampler,
		sink:    sink,
		logger:  logger.WithComponent("load"),
		streams: make(map[string]probeResult),
	}, nil
}

// BatchSize returns the largest batch Execute accepts.
func (s *Stage) BatchSize() int { return s.sampler.BatchSize() }

// Execute decodes one batch. Crop windows are drawn from the seed table,
// which is renewed before every batch but the first. A sample that fails
// is zero-filled, logged and reported in the result; Execute itself only
// fails for an oversized batch or a cancelled context.
func (s *Stage) Execute(ctx context.Context, input pipeline.LoadInput) (pipeline.LoadResult, error) {
	if len(input.Samples) > s.sampler.BatchSize() {
		return pipeline.LoadResult{}, fmt.Errorf("%w: %d samples, %d slots", ErrBatchTooLarge, len(input.Samples), s.sampler.BatchSize())
	}

	batch := s.batches
	if batch > 0 {
		s.sampler.Reseed()
	}
	s.batches++

	result := pipeline.LoadResult{
		Batch: batch,
		Seeds: s.sampler.Seeds(),
	}
	if len(input.Samples) == 0 {
		return result, nil
	}

	samples, total := s.plan(input.Samples)
	data := input.Buffer
	if len(data) < total {
		data = make([]byte, total)
	}
	data = data[:total]
	result.Data = data
	result.Samples = samples

	workers := min(s.opts.Workers, len(samples))
	s.logger.Info("Loading batch %d: %d samples with %d workers", batch, len(samples), workers)

	s.executeParallel(ctx, batch, workers, result.Samples, data)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	for i := range result.Samples {
		smp := &result.Samples[i]
		if smp.Err != nil {
			result.Failed++
			clear(data[smp.Offset : smp.Offset+smp.Size])
			s.logger.Warn("Sample %d (%s @ %d) failed: %v", s.sampleID(batch, i), smp.Path, smp.StartFrame, smp.Err)
		}
	}

	if s.sink.Enabled() {
		if manifest, err := Manifest(result, s.opts, s.sampler.Type()); err == nil {
			s.sink.SaveBatchManifest(batch, manifest)
		}
	}

	s.logger.Info("Batch %d loaded: %d samples, %d failed, %d bytes", batch, len(result.Samples), result.Failed, len(data))
	return result, nil
}

// plan resolves the window, output size and buffer placement of every
// sample. It runs on the calling goroutine so that windows only depend on
// the seed table and the sample's position in the batch.
func (s *Stage) plan(specs []pipeline.SampleSpec) ([]pipeline.SampleResult, int) {
	samples := make([]pipeline.SampleResult, len(specs))
	offset := 0
	for i, spec := range specs {
		smp := pipeline.SampleResult{SampleSpec: spec, Format: s.opts.Format}

		info, err := s.stream(spec.Path)
		if err == nil {
			smp.Window, err = s.sampler.Generate(info.Height, info.Width, i)
		}
		smp.Err = err

		smp.Width, smp.Height = s.outputSize(info, smp.Window)
		if smp.Width > 0 && smp.Height > 0 {
			smp.FrameSize = raster.FrameSize(smp.Format, smp.Width, smp.Height, 0)
		}
		smp.Offset = offset
		smp.Size = smp.FrameSize * s.opts.SequenceLength
		offset += smp.Size

		s.logger.Debug("Sample %d window %s, output %dx%d", i, smp.Window, smp.Width, smp.Height)
		samples[i] = smp
	}
	return samples, offset
}

func (s *Stage) stream(path string) (ports.StreamInfo, error) {
	if r, ok := s.streams[path]; ok {
		return r.info, r.err
	}
	info, err := probe(s.decOpts.Open, path)
	s.streams[path] = probeResult{info: info, err: err}
	return info, err
}

// outputSize returns the frame size a sample decodes to.
func (s *Stage) outputSize(info ports.StreamInfo, w crop.Window) (int, int) {
	if s.opts.Width > 0 {
		return s.opts.Width, s.opts.Height
	}
	rw, rh := info.Width, info.Height
	if s.cropping() && !w.Empty() {
		rw, rh = w.W, w.H
	}
	if rw <= 0 || rh <= 0 || s.opts.ResizeShorter == 0 {
		return rw, rh
	}
	return shorterSide(rw, rh, s.opts.ResizeShorter)
}

func (s *Stage) cropping() bool {
	return s.opts.Variant == seqdecode.VariantFusedCropResize
}

// shorterSide scales w x h so that its shorter side becomes target.
func shorterSide(w, h, target int) (int, int) {
	if w <= h {
		return target, max(1, int(math.Round(float64(h)*float64(target)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(target)/float64(h)))), target
}

func (s *Stage) sampleID(batch, index int) int {
	return batch*s.sampler.BatchSize() + index
}

// job is one sample handed to a worker.
type job struct {
	index  int
	sample pipeline.SampleResult
}

// outcome is a worker's report for one sample.
type outcome struct {
	index int
	kept  int
	err   error
}

// executeParallel decodes samples using a worker pool. Each worker owns one
// decoder and keeps its file open while consecutive jobs share a path.
func (s *Stage) executeParallel(ctx context.Context, batch, workers int, samples []pipeline.SampleResult, data []byte) {
	jobs := make(chan job, len(samples))
	results := make(chan outcome, len(samples))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go s.worker(ctx, &wg, batch, data, jobs, results)
	}

	for i, smp := range samples {
		if smp.Err != nil {
			continue
		}
		jobs <- job{index: i, sample: smp}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		samples[r.index].Kept = r.kept
		samples[r.index].Err = r.err
	}
}

// worker processes samples from the jobs channel.
func (s *Stage) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	batch int,
	data []byte,
	jobs <-chan job,
	results chan<- outcome,
) {
	defer wg.Done()

	dec := seqdecode.New(s.opts.Variant, s.decOpts)
	defer dec.Release()
	current := ""

	for j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		slot := data[j.sample.Offset : j.sample.Offset+j.sample.Size]
		kept, err := s.decodeSample(dec, &current, j.sample, slot)
		if err == nil && s.sink.Enabled() {
			s.saveDebug(dec, s.sampleID(batch, j.index), j.sample, slot, kept)
		}
		results <- outcome{index: j.index, kept: kept, err: err}
	}
}

// decodeSample decodes one sequence into slot, reopening the decoder only
// when the sample comes from another file.
func (s *Stage) decodeSample(dec *seqdecode.Decoder, current *string, smp pipeline.SampleResult, slot []byte) (int, error) {
	if *current != smp.Path {
		*current = ""
		if err := dec.Initialize(smp.Path); err != nil {
			return 0, err
		}
		*current = smp.Path
	}

	dec.SetCropType(s.sampler.Type())
	dec.SetCropWindow(smp.Window)
	err := dec.Decode(slot, seqdecode.Request{
		SeekFrame:      smp.StartFrame,
		SequenceLength: s.opts.SequenceLength,
		Stride:         s.opts.Stride,
		Width:          smp.Width,
		Height:         smp.Height,
		Format:         smp.Format,
	})
	if err != nil {
		// Start the next sample from a fresh session.
		dec.Release()
		*current = ""
		return 0, err
	}
	return dec.Kept(), nil
}
