// Package main provides the CLI entry point for vidseq.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vidseq/pkg/adapters/filesink"
	"github.com/user/vidseq/pkg/adapters/ggrenderer"
	"github.com/user/vidseq/pkg/adapters/logger"
	"github.com/user/vidseq/pkg/adapters/mp4demux"
	"github.com/user/vidseq/pkg/adapters/nullsink"
	"github.com/user/vidseq/pkg/adapters/osfilesystem"
	"github.com/user/vidseq/pkg/adapters/smartdecoder"
	"github.com/user/vidseq/pkg/adapters/smartencoder"
	"github.com/user/vidseq/pkg/config"
	"github.com/user/vidseq/pkg/pipeline"
	"github.com/user/vidseq/pkg/ports"
	"github.com/user/vidseq/pkg/seqdecode"
	"github.com/user/vidseq/pkg/stages/load"
	"github.com/user/vidseq/pkg/stages/synth"
	"github.com/user/vidseq/pkg/summarizer"
)

var version = "dev"

// errNoSources is returned by the load command when neither the config
// file nor the arguments name a video.
var errNoSources = errors.New("no source videos given")

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "vidseq",
		Usage:     l10n.T("Decode frame sequences from videos into training batches"),
		Version:   version,
		Writer:    out,
		ErrWriter: errOut,
		Flags:     commonFlags(),
		Commands: []*cli.Command{
			probeCommand(),
			decodeCommand(),
			loadCommand(),
			synthCommand(),
			versionCommand(),
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Value:    "info",
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"Q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
		&cli.StringFlag{
			Name:     "ffmpeg-path",
			Usage:    l10n.T("Path to the ffmpeg binary used for H.264"),
			EnvVars:  []string{"FFMPEG_PATH"},
			Category: l10n.T("Codecs"),
		},
	}
}

// newLogger builds the logger selected by the global flags.
func newLogger(c *cli.Context) ports.Logger {
	return newLevelLogger(c, c.String("log-level"))
}

// newLevelLogger uses fallback as the level unless --log-level was given.
func newLevelLogger(c *cli.Context, fallback string) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	name := fallback
	if c.IsSet("log-level") || name == "" {
		name = c.String("log-level")
	}
	level := ports.ParseLogLevel(name)
	if c.App.Writer == os.Stdout {
		return logger.NewConsole(level)
	}
	return logger.NewWriter(level, c.App.Writer, c.App.ErrWriter, false)
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func decoderOptions(c *cli.Context, ffmpegPath string, log ports.Logger) seqdecode.Options {
	if ffmpegPath == "" {
		ffmpegPath = c.String("ffmpeg-path")
	}
	return seqdecode.Options{
		Open:   mp4demux.OpenDemuxer,
		Codecs: smartdecoder.Factory(smartdecoder.Options{FFmpegPath: ffmpegPath}),
		Logger: log,
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show the streams of an MP4 file"),
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit(l10n.T("A video file is required"), 2)
			}

			d, err := mp4demux.Open(path)
			if err != nil {
				return err
			}
			defer d.Close()

			w := c.App.Writer
			for _, s := range d.Streams() {
				fmt.Fprintln(w, l10n.F("Stream %d: %s %dx%d, %d frames, %.3f fps, time base %d/%d",
					s.Index, s.Codec, s.Width, s.Height, s.FrameCount, s.AvgFrameRate.Float64(), s.TimeBase.Num, s.TimeBase.Den))
			}

			best, err := d.BestVideoStream()
			if err != nil {
				return err
			}
			_, info, err := smartdecoder.New(best.Codec, smartdecoder.Options{FFmpegPath: c.String("ffmpeg-path")})
			if err != nil {
				fmt.Fprintln(w, l10n.F("Decoder: unavailable (%s)", err))
				return nil
			}
			fmt.Fprintln(w, l10n.F("Decoder: %s via %s", info.Codec, info.Backend))
			return nil
		},
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     l10n.T("Decode one sequence and save its frames as images"),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output directory"), Category: l10n.T("Output")},
			&cli.Int64Flag{Name: "seek", Usage: l10n.T("First frame of the sequence"), Category: l10n.T("Sequence")},
			&cli.IntFlag{Name: "length", Aliases: []string{"n"}, Value: 8, Usage: l10n.T("Number of frames"), Category: l10n.T("Sequence")},
			&cli.IntFlag{Name: "stride", Value: 1, Usage: l10n.T("Distance between kept frames"), Category: l10n.T("Sequence")},
			&cli.StringFlag{Name: "variant", Value: "fused", Usage: l10n.T("Decoder variant (plain, fused)"), Category: l10n.T("Decoding")},
			&cli.StringFlag{Name: "format", Value: "rgb24", Usage: l10n.T("Output pixel format"), Category: l10n.T("Decoding")},
			&cli.StringFlag{Name: "crop-type", Value: "random", Usage: l10n.T("Crop type (random, corner)"), Category: l10n.T("Decoding")},
			&cli.Int64Flag{Name: "seed", Usage: l10n.T("Seed of the crop sampler"), Category: l10n.T("Decoding")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Output frame width"), Category: l10n.T("Decoding")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Output frame height"), Category: l10n.T("Decoding")},
			&cli.IntFlag{Name: "resize-shorter", Usage: l10n.T("Scale so the shorter side has this length"), Category: l10n.T("Decoding")},
		},
		Action: runDecode,
	}
}

func runDecode(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit(l10n.T("A video file is required"), 2)
	}
	log := newLogger(c)

	cfg := config.Defaults()
	cfg.Sources = []string{path}
	cfg.SequenceLength = c.Int("length")
	cfg.FrameStride = c.Int("stride")
	cfg.Variant = c.String("variant")
	cfg.OutputFormat = c.String("format")
	cfg.CropType = c.String("crop-type")
	cfg.Seed = c.Int64("seed")
	cfg.ResizeWidth = c.Int("width")
	cfg.ResizeHeight = c.Int("height")
	cfg.ResizeShorter = c.Int("resize-shorter")
	cfg.BatchSize = 1
	cfg.Workers = 1

	opts, err := cfg.ToLoadOptions()
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	out := c.String("out")
	if err := fs.MkdirAll(out); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	sink := filesink.New(out, fs, ggrenderer.New())

	stage, err := load.NewStage(decoderOptions(c, "", log), sink, log, opts)
	if err != nil {
		return err
	}

	ctx, cancel := withSignals(c.Context, log)
	defer cancel()

	result, err := stage.Execute(ctx, pipeline.LoadInput{
		Samples: []pipeline.SampleSpec{{Path: path, StartFrame: c.Int64("seek")}},
	})
	if err != nil {
		return err
	}
	smp := result.Samples[0]
	if smp.Err != nil {
		return smp.Err
	}

	if err := fs.WriteFile(filepath.Join(out, "sequence.bin"), result.Data); err != nil {
		return fmt.Errorf("write sequence: %w", err)
	}
	fmt.Fprintln(c.App.Writer, l10n.F("Decoded %d frames at %dx%d (%s), window %s",
		smp.Kept, smp.Width, smp.Height, smp.Format, smp.Window))
	return nil
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     l10n.T("Index source videos and write every batch to disk"),
		ArgsUsage: "[sources...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Input")},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: l10n.T("Output directory (overrides config)"), Category: l10n.T("Output")},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: l10n.T("Number of decode workers (overrides config)"), Category: l10n.T("Decoding")},
			&cli.Int64Flag{Name: "seed", Usage: l10n.T("Seed of the crop sampler (overrides config)"), Category: l10n.T("Decoding")},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output"), Category: l10n.T("Debug")},
			&cli.StringFlag{Name: "debug-dir", Usage: l10n.T("Directory for debug output (overrides config)"), Category: l10n.T("Debug")},
		},
		Action: runLoad,
	}
}

// loadConfig reads the config file when one is given and applies the
// command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}

	if c.Args().Present() {
		cfg.Sources = c.Args().Slice()
	}
	if c.IsSet("out") {
		cfg.Output = c.String("out")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Int64("seed")
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if len(cfg.Sources) == 0 {
		return cfg, errNoSources
	}
	return cfg, cfg.Validate()
}

func runLoad(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLevelLogger(c, cfg.LogLevel)

	opts, err := cfg.ToLoadOptions()
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, ggrenderer.New())
	} else {
		sink = nullsink.New()
	}

	stage, err := load.NewStage(decoderOptions(c, cfg.FFmpegPath, log), sink, log, opts)
	if err != nil {
		return err
	}

	started := time.Now()
	specs, err := load.BuildIndex(mp4demux.OpenDemuxer, cfg.Sources, cfg.ToIndexOptions())
	if err != nil {
		log.Error("Failed to build index: %s", err)
		return err
	}
	log.Info("Indexed %d sequences from %d sources", len(specs), len(cfg.Sources))

	if err := fs.MkdirAll(cfg.Output); err != nil {
		log.Error("Failed to write output: %s", err)
		return err
	}

	ctx, cancel := withSignals(c.Context, log)
	defer cancel()

	summary := newSummary(cfg, stage, specs)

	var buf []byte
	samples, failed := 0, 0
	batches := load.Batches(specs, stage.BatchSize())
	for _, batch := range batches {
		result, err := stage.Execute(ctx, pipeline.LoadInput{Samples: batch, Buffer: buf})
		if err != nil {
			log.Error("Failed to load batch %d: %s", result.Batch, err)
			return err
		}
		if cap(result.Data) > cap(buf) {
			buf = result.Data[:cap(result.Data)]
		}
		samples += len(result.Samples)
		failed += result.Failed

		if err := writeBatch(fs, cfg.Output, result, stage); err != nil {
			log.Error("Failed to write output: %s", err)
			return err
		}
		log.Info("Wrote batch %d to %s", result.Batch, cfg.Output)
		summary.AddBatch(summarizer.BatchInfo{
			Index:   result.Batch,
			Samples: len(result.Samples),
			Failed:  result.Failed,
			Bytes:   int64(len(result.Data)),
		})
	}

	writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	), fs)
	if err := writer.Write(filepath.Join(cfg.Output, "summary.md"), summary.WithElapsed(time.Since(started)).Build()); err != nil {
		log.Error("Failed to write output: %s", err)
		return err
	}

	log.Info("Run completed: %d batches, %d samples, %d failed", len(batches), samples, failed)
	return nil
}

// newSummary starts the run summary with the effective settings and the
// number of sequences indexed per source.
func newSummary(cfg config.Config, stage *load.Stage, specs []pipeline.SampleSpec) *summarizer.Builder {
	opts := stage.Options()
	b := summarizer.NewBuilder().WithSettings(summarizer.Settings{
		Variant:        opts.Variant.String(),
		CropType:       stage.CropType().String(),
		Format:         opts.Format.String(),
		SequenceLength: opts.SequenceLength,
		Stride:         opts.Stride,
		BatchSize:      stage.BatchSize(),
		Seed:           opts.Seed,
		Workers:        opts.Workers,
		OutputWidth:    opts.Width,
		OutputHeight:   opts.Height,
		ResizeShorter:  opts.ResizeShorter,
	})

	counts := make(map[string]int, len(cfg.Sources))
	for _, spec := range specs {
		counts[spec.Path]++
	}
	for _, path := range cfg.Sources {
		b.AddSource(path, counts[path])
	}
	return b
}

// writeBatch stores the batch buffer and its manifest side by side.
func writeBatch(fs ports.FileSystem, dir string, result pipeline.LoadResult, stage *load.Stage) error {
	base := filepath.Join(dir, fmt.Sprintf("batch-%04d", result.Batch))
	if err := fs.WriteFile(base+".bin", result.Data); err != nil {
		return err
	}
	manifest, err := load.Manifest(result, stage.Options(), stage.CropType())
	if err != nil {
		return err
	}
	return fs.WriteFile(base+".json", manifest)
}

func synthCommand() *cli.Command {
	return &cli.Command{
		Name:      "synth",
		Usage:     l10n.T("Generate a synthetic test clip"),
		ArgsUsage: "<out.mp4>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Input")},
			&cli.StringFlag{Name: "codec", Usage: l10n.T("Video codec (av1, h264)"), Category: l10n.T("Video and Quality")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Clip width"), Category: l10n.T("Video and Quality")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Clip height"), Category: l10n.T("Video and Quality")},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Number of frames"), Category: l10n.T("Video and Quality")},
			&cli.Float64Flag{Name: "fps", Usage: l10n.T("Frame rate"), Category: l10n.T("Video and Quality")},
			&cli.IntFlag{Name: "keyframe-interval", Aliases: []string{"g"}, Usage: l10n.T("Frames between keyframes"), Category: l10n.T("Video and Quality")},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: l10n.T("Video CRF value (0-63, lower is better)"), Category: l10n.T("Video and Quality")},
			&cli.BoolFlag{Name: "no-fallback", Usage: l10n.T("Fail instead of falling back to AV1"), Category: l10n.T("Codecs")},
		},
		Action: runSynth,
	}
}

func runSynth(c *cli.Context) error {
	out := c.Args().First()
	if out == "" {
		return cli.Exit(l10n.T("An output file is required"), 2)
	}
	log := newLogger(c)

	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return err
		}
	}
	s := &cfg.Synth
	if c.IsSet("codec") {
		s.Codec = c.String("codec")
	}
	if c.IsSet("width") {
		s.Width = c.Int("width")
	}
	if c.IsSet("height") {
		s.Height = c.Int("height")
	}
	if c.IsSet("frames") {
		s.Frames = c.Int("frames")
	}
	if c.IsSet("fps") {
		s.FPS = c.Float64("fps")
	}
	if c.IsSet("keyframe-interval") {
		s.KeyframeInterval = c.Int("keyframe-interval")
	}
	if c.IsSet("quality") {
		s.Quality = c.Int("quality")
	}

	ffmpegPath := c.String("ffmpeg-path")
	if ffmpegPath == "" {
		ffmpegPath = cfg.FFmpegPath
	}
	encoder, info, err := smartencoder.New(ports.CodecID(s.Codec), smartencoder.Options{
		FFmpegPath: ffmpegPath,
		NoFallback: c.Bool("no-fallback"),
		Logger:     log,
	})
	if err != nil {
		log.Error("Failed to generate clip: %s", err)
		return err
	}
	log.Debug("Encoding with %s via %s", info.Codec, info.Backend)

	ctx, cancel := withSignals(c.Context, log)
	defer cancel()

	stage := synth.NewStage(ggrenderer.New(), encoder, log)
	result, err := stage.Execute(ctx, cfg.ToSynthInput())
	if err != nil {
		log.Error("Failed to generate clip: %s", err)
		return err
	}

	fs := osfilesystem.New()
	if dir := filepath.Dir(out); dir != "." {
		if err := fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := fs.WriteFile(out, result.VideoData); err != nil {
		log.Error("Failed to write output: %s", err)
		return err
	}
	log.Info("Clip saved to %s", out)
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("vidseq version %s", version))
			return nil
		},
	}
}
