// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/vidseq/pkg/crop"
	"github.com/user/vidseq/pkg/pipeline"
	"github.com/user/vidseq/pkg/raster"
	"github.com/user/vidseq/pkg/seqdecode"
	"github.com/user/vidseq/pkg/stages/load"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the full configuration for a loading run.
type Config struct {
	// Input/Output
	Sources []string `yaml:"sources"`
	Output  string   `yaml:"output"`

	// Sequences
	SequenceLength int  `yaml:"sequence_length"`
	FrameStep      int  `yaml:"frame_step"`
	FrameStride    int  `yaml:"frame_stride"`
	PadSequences   bool `yaml:"pad_sequences"`
	Shuffle        bool `yaml:"shuffle"`

	// Decoding
	Variant      string `yaml:"variant"`
	OutputFormat string `yaml:"output_format"`
	FFmpegPath   string `yaml:"ffmpeg_path"`

	// Cropping
	CropType          string    `yaml:"crop_type"`
	NumAttempts       int       `yaml:"num_attempts"`
	RandomArea        []float64 `yaml:"random_area"`
	RandomAspectRatio []float64 `yaml:"random_aspect_ratio"`
	CornerScales      []float64 `yaml:"corner_scales"`

	// Resizing
	ResizeShorter int `yaml:"resize_shorter"`
	ResizeWidth   int `yaml:"resize_width"`
	ResizeHeight  int `yaml:"resize_height"`

	// Batching
	Seed      int64 `yaml:"seed"`
	BatchSize int   `yaml:"batch_size"`
	Workers   int   `yaml:"workers"`

	// Synthetic clips
	Synth SynthConfig `yaml:"synth"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// SynthConfig represents the settings of generated test clips.
type SynthConfig struct {
	Codec            string      `yaml:"codec"`
	Width            int         `yaml:"width"`
	Height           int         `yaml:"height"`
	Frames           int         `yaml:"frames"`
	FPS              float64     `yaml:"fps"`
	KeyframeInterval int         `yaml:"keyframe_interval"`
	Quality          int         `yaml:"quality"`
	Theme            ThemeConfig `yaml:"theme"`
}

// ThemeConfig represents theming options.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	BoxColor        string `yaml:"box_color"`
	TextColor       string `yaml:"text_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		// Input/Output
		Output: "./batches",

		// Sequences
		SequenceLength: 8,
		FrameStride:    1,

		// Decoding
		Variant:      "fused",
		OutputFormat: "rgb24",

		// Cropping
		CropType:          "random",
		NumAttempts:       crop.DefaultNumAttempts,
		RandomArea:        []float64{crop.DefaultArea.Min, crop.DefaultArea.Max},
		RandomAspectRatio: []float64{crop.DefaultAspectRatio.Min, crop.DefaultAspectRatio.Max},
		CornerScales:      append([]float64(nil), crop.DefaultScales...),

		// Batching
		BatchSize: 4,

		// Synthetic clips
		Synth: SynthConfig{
			Codec:            "av1",
			Width:            320,
			Height:           240,
			Frames:           60,
			FPS:              25,
			KeyframeInterval: 12,
			Quality:          30,
			Theme: ThemeConfig{
				BackgroundColor: "#1a1a2e",
				BoxColor:        "#4ade80",
				TextColor:       "#ffffff",
			},
		},

		// Logging
		LogLevel: "info",

		// Debug
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	return cfg, nil
}

// Validate checks every setting the loader depends on. Sources are not
// required here: the CLI may supply them.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.SequenceLength <= 0 {
		fail("sequence_length must be positive, got %d", c.SequenceLength)
	}
	if c.FrameStep < 0 {
		fail("frame_step must not be negative, got %d", c.FrameStep)
	}
	if c.FrameStride <= 0 {
		fail("frame_stride must be positive, got %d", c.FrameStride)
	}
	if _, err := seqdecode.ParseVariant(c.Variant); err != nil {
		fail("variant: %v", err)
	}
	if _, err := raster.ParsePixelFormat(c.OutputFormat); err != nil {
		fail("output_format: %v", err)
	}
	if _, err := crop.ParseType(c.CropType); err != nil {
		fail("crop_type: %v", err)
	}
	if len(c.RandomArea) != 2 {
		fail("random_area needs two values, got %d", len(c.RandomArea))
	}
	if len(c.RandomAspectRatio) != 2 {
		fail("random_aspect_ratio needs two values, got %d", len(c.RandomAspectRatio))
	}
	if c.ResizeWidth < 0 || c.ResizeHeight < 0 || (c.ResizeWidth > 0) != (c.ResizeHeight > 0) {
		fail("resize_width and resize_height must be set together, got %dx%d", c.ResizeWidth, c.ResizeHeight)
	}
	if c.ResizeShorter < 0 || (c.ResizeShorter > 0 && c.ResizeWidth > 0) {
		fail("resize_shorter %d conflicts with resize_width/resize_height", c.ResizeShorter)
	}
	if c.BatchSize <= 0 {
		fail("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		fail("workers must not be negative, got %d", c.Workers)
	}

	return errors.Join(errs...)
}

// ToLoadOptions converts Config to load.Options. The crop parameters are
// checked again by the sampler when the stage is built.
func (c Config) ToLoadOptions() (load.Options, error) {
	if err := c.Validate(); err != nil {
		return load.Options{}, err
	}
	variant, _ := seqdecode.ParseVariant(c.Variant)
	format, _ := raster.ParsePixelFormat(c.OutputFormat)
	cropType, _ := crop.ParseType(c.CropType)

	return load.Options{
		Variant: variant,
		Crop: crop.Options{
			Type:        cropType,
			BatchSize:   c.BatchSize,
			Area:        crop.Range{Min: c.RandomArea[0], Max: c.RandomArea[1]},
			AspectRatio: crop.Range{Min: c.RandomAspectRatio[0], Max: c.RandomAspectRatio[1]},
			NumAttempts: c.NumAttempts,
			Scales:      c.CornerScales,
		},
		Seed:           c.Seed,
		SequenceLength: c.SequenceLength,
		Stride:         c.FrameStride,
		Width:          c.ResizeWidth,
		Height:         c.ResizeHeight,
		ResizeShorter:  c.ResizeShorter,
		Format:         format,
		Workers:        c.Workers,
	}, nil
}

// ToIndexOptions converts Config to load.IndexOptions.
func (c Config) ToIndexOptions() load.IndexOptions {
	return load.IndexOptions{
		SequenceLength: c.SequenceLength,
		Step:           c.FrameStep,
		Stride:         c.FrameStride,
		Pad:            c.PadSequences,
		Shuffle:        c.Shuffle,
		Seed:           c.Seed,
	}
}

// ToSynthInput converts the synth section to pipeline.SynthInput.
func (c Config) ToSynthInput() pipeline.SynthInput {
	s := c.Synth
	return pipeline.SynthInput{
		Width:            s.Width,
		Height:           s.Height,
		Frames:           s.Frames,
		FPS:              s.FPS,
		KeyframeInterval: s.KeyframeInterval,
		Quality:          s.Quality,
		Theme: pipeline.SynthTheme{
			BackgroundColor: ParseColor(s.Theme.BackgroundColor),
			BoxColor:        ParseColor(s.Theme.BoxColor),
			TextColor:       ParseColor(s.Theme.TextColor),
		},
	}
}

// ParseColor parses a "#rrggbb" hex string. Anything else yields black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
