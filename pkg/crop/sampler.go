package crop

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrIndexOutOfRange is returned when an instance index is outside the seed table.
	ErrIndexOutOfRange = errors.New("crop: instance index out of range")

	// ErrInvalidOptions is returned for an unusable sampler configuration.
	ErrInvalidOptions = errors.New("crop: invalid sampler options")
)

// DefaultNumAttempts is the rejection-sampling budget used when Options.NumAttempts is zero.
const DefaultNumAttempts = 10

// DefaultArea and DefaultAspectRatio are the usual random-crop ranges.
var (
	DefaultArea        = Range{Min: 0.08, Max: 1}
	DefaultAspectRatio = Range{Min: 3.0 / 4.0, Max: 4.0 / 3.0}
	DefaultScales      = []float64{1, 0.875, 0.75, 0.66}
)

// Options configures a Sampler.
type Options struct {
	Type      Type
	BatchSize int

	// Random area/aspect parameters.
	Area        Range
	AspectRatio Range
	NumAttempts int

	// Fixed corner parameters.
	Scales []float64
}

// Sampler produces crop windows for the slots of a batch.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	opts  Options
	gen   *SeedGenerator
	seeds []uint64
	src   *rand.PCG
	rng   *rand.Rand
}

// NewSampler validates opts and builds a sampler whose initial seed table is
// derived from gen.
func NewSampler(gen *SeedGenerator, opts Options) (*Sampler, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: nil seed generator", ErrInvalidOptions)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", ErrInvalidOptions, opts.BatchSize)
	}

	switch opts.Type {
	case TypeRandomAreaAspect:
		if opts.NumAttempts == 0 {
			opts.NumAttempts = DefaultNumAttempts
		}
		if opts.NumAttempts < 0 {
			return nil, fmt.Errorf("%w: num attempts %d", ErrInvalidOptions, opts.NumAttempts)
		}
		a := opts.Area
		if a.Min <= 0 || a.Min > a.Max || a.Max > 1 {
			return nil, fmt.Errorf("%w: area range [%g, %g]", ErrInvalidOptions, a.Min, a.Max)
		}
		r := opts.AspectRatio
		if r.Min <= 0 || r.Min > r.Max {
			return nil, fmt.Errorf("%w: aspect ratio range [%g, %g]", ErrInvalidOptions, r.Min, r.Max)
		}
	case TypeFixedCorner:
		if len(opts.Scales) == 0 {
			return nil, fmt.Errorf("%w: no corner scales", ErrInvalidOptions)
		}
		for _, s := range opts.Scales {
			if s <= 0 || s > 1 {
				return nil, fmt.Errorf("%w: corner scale %g", ErrInvalidOptions, s)
			}
		}
		opts.Scales = append([]float64(nil), opts.Scales...)
	default:
		return nil, fmt.Errorf("%w: crop type %d", ErrInvalidOptions, int(opts.Type))
	}

	src := rand.NewPCG(0, seedStream)
	s := &Sampler{
		opts: opts,
		gen:  gen,
		src:  src,
		rng:  rand.New(src),
	}
	s.Reseed()
	return s, nil
}

// Type returns the configured crop type.
func (s *Sampler) Type() Type { return s.opts.Type }

// BatchSize returns the number of slots in the seed table.
func (s *Sampler) BatchSize() int { return len(s.seeds) }

// Reseed renews the run-wide seed and replaces the whole seed table with
// values derived from it.
func (s *Sampler) Reseed() {
	s.seeds = expandSeeds(s.gen.Renew(), s.opts.BatchSize)
}

// Seeds returns a copy of the current seed table.
func (s *Sampler) Seeds() []uint64 {
	return append([]uint64(nil), s.seeds...)
}

// SetSeeds installs a previously saved seed table.
func (s *Sampler) SetSeeds(seeds []uint64) error {
	if len(seeds) != s.opts.BatchSize {
		return fmt.Errorf("%w: seed table has %d entries, batch size is %d", ErrInvalidOptions, len(seeds), s.opts.BatchSize)
	}
	s.seeds = append([]uint64(nil), seeds...)
	return nil
}

// Generate returns the window for slot instance of a height x width frame.
// A frame with a non-positive dimension yields the zero Window.
func (s *Sampler) Generate(height, width, instance int) (Window, error) {
	if instance < 0 || instance >= len(s.seeds) {
		return Window{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, instance, len(s.seeds))
	}
	if height <= 0 || width <= 0 {
		return Window{}, nil
	}

	seed := s.seeds[instance]
	s.src.Seed(seed, seed^seedStream)

	if s.opts.Type == TypeFixedCorner {
		return s.corner(height, width), nil
	}
	return s.randomAreaAspect(height, width), nil
}

func (s *Sampler) corner(height, width int) Window {
	scale := s.opts.Scales[s.rng.IntN(len(s.opts.Scales))]
	pos := Position(s.rng.IntN(numPositions))
	return CornerWindow(height, width, scale, pos)
}

func (s *Sampler) randomAreaAspect(height, width int) Window {
	area, aspect := s.opts.Area, s.opts.AspectRatio
	minWH, maxWH := aspect.Min, aspect.Max
	maxHW := 1 / minWH

	h, w := float64(height), float64(width)
	minArea := w * h * area.Min
	maxW := max(1, int(h*maxWH))
	maxH := max(1, int(w*maxHW))

	var win Window
	switch {
	case float64(height*maxW) < minArea:
		// Too wide for any admissible ratio: keep full height.
		win.W, win.H = maxW, height
	case float64(width*maxH) < minArea:
		// Too tall: keep full width.
		win.W, win.H = width, maxH
	default:
		ok := false
		logMin, logMax := math.Log(minWH), math.Log(maxWH)
		for range s.opts.NumAttempts {
			target := s.uniform(area.Min, area.Max) * w * h
			ratio := math.Exp(s.uniform(logMin, logMax))
			cw := max(1, int(math.Round(math.Sqrt(target*ratio))))
			ch := max(1, int(math.Round(math.Sqrt(target/ratio))))
			got := float64(cw) / float64(ch)
			if cw <= width && ch <= height && got >= minWH && got <= maxWH {
				win.W, win.H = cw, ch
				ok = true
				break
			}
		}
		if !ok {
			win.W, win.H = s.fallback(height, width, maxW, maxH)
		}
	}

	win.X = s.rng.IntN(width - win.W + 1)
	win.Y = s.rng.IntN(height - win.H + 1)
	return win
}

// fallback clamps the frame to the admissible aspect range and shrinks it
// to at most the maximum area fraction.
func (s *Sampler) fallback(height, width, maxW, maxH int) (int, int) {
	ratio := float64(width) / float64(height)
	cw, ch := width, height
	switch {
	case ratio > s.opts.AspectRatio.Max:
		cw = maxW
	case ratio < s.opts.AspectRatio.Min:
		ch = maxH
	}
	maxArea := s.opts.Area.Max * float64(width) * float64(height)
	scale := math.Sqrt(min(1, maxArea/float64(cw*ch)))
	return max(1, int(float64(cw)*scale)), max(1, int(float64(ch)*scale))
}

func (s *Sampler) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
