package load

import (
	"fmt"
	"math/rand/v2"

	"github.com/user/vidseq/pkg/pipeline"
	"github.com/user/vidseq/pkg/ports"
)

// IndexOptions controls how source files are cut into sequences.
type IndexOptions struct {
	SequenceLength int
	// Step is the distance between the first frames of consecutive
	// sequences. Zero means SequenceLength.
	Step   int
	Stride int
	// Pad admits sequences that run past the last frame; their trailing
	// slots are zero-filled by the decoder.
	Pad bool

	Shuffle bool
	Seed    int64
}

// EnumerateSequences returns the first frame of every sequence of length
// frames, taken every stride frames, that starts on a multiple of step. A
// sequence spans (length-1)*stride+1 frames. Without pad it must end inside
// the clip; with pad it only has to start inside it.
func EnumerateSequences(frameCount int64, length, step, stride int, pad bool) []int64 {
	if frameCount <= 0 || length <= 0 || step <= 0 || stride <= 0 {
		return nil
	}
	span := int64((length-1)*stride + 1)

	var starts []int64
	for start := int64(0); start < frameCount; start += int64(step) {
		if !pad && start+span > frameCount {
			break
		}
		starts = append(starts, start)
	}
	return starts
}

// BuildIndex probes every path and lists its sequences in file order, or
// shuffled when opts.Shuffle is set.
func BuildIndex(open ports.OpenDemuxerFunc, paths []string, opts IndexOptions) ([]pipeline.SampleSpec, error) {
	if opts.SequenceLength <= 0 {
		return nil, fmt.Errorf("%w: sequence length %d", ErrInvalidOptions, opts.SequenceLength)
	}
	if opts.Step == 0 {
		opts.Step = opts.SequenceLength
	}
	if opts.Stride == 0 {
		opts.Stride = 1
	}
	if opts.Step < 0 || opts.Stride < 0 {
		return nil, fmt.Errorf("%w: step %d, stride %d", ErrInvalidOptions, opts.Step, opts.Stride)
	}

	var specs []pipeline.SampleSpec
	for _, path := range paths {
		info, err := probe(open, path)
		if err != nil {
			return nil, err
		}
		for _, start := range EnumerateSequences(info.FrameCount, opts.SequenceLength, opts.Step, opts.Stride, opts.Pad) {
			specs = append(specs, pipeline.SampleSpec{Path: path, StartFrame: start})
		}
	}

	if opts.Shuffle {
		rng := rand.New(rand.NewPCG(uint64(opts.Seed), shuffleStream))
		rng.Shuffle(len(specs), func(i, j int) {
			specs[i], specs[j] = specs[j], specs[i]
		})
	}
	return specs, nil
}

const shuffleStream = 0x5851f42d4c957f2d

// Batches splits specs into consecutive groups of at most size samples.
func Batches(specs []pipeline.SampleSpec, size int) [][]pipeline.SampleSpec {
	if size <= 0 {
		return nil
	}
	var out [][]pipeline.SampleSpec
	for len(specs) > 0 {
		n := min(size, len(specs))
		out = append(out, specs[:n:n])
		specs = specs[n:]
	}
	return out
}

// probe opens path just long enough to read its best video stream.
func probe(open ports.OpenDemuxerFunc, path string) (ports.StreamInfo, error) {
	demux, err := open(path)
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer demux.Close()

	info, err := demux.BestVideoStream()
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}
