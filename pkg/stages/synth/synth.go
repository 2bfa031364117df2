// Package synth implements the synthetic clip stage: it renders numbered
// test-pattern frames and encodes them with a fixed keyframe interval.
package synth

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/user/vidseq/pkg/pipeline"
	"github.com/user/vidseq/pkg/ports"
)

// ErrInvalidInput is returned for a clip that cannot be generated.
var ErrInvalidInput = errors.New("synth: invalid input")

// Stage renders and encodes a test clip.
type Stage struct {
	renderer ports.Renderer
	encoder  ports.VideoEncoder
	logger   ports.Logger
}

var _ pipeline.Stage[pipeline.SynthInput, pipeline.SynthResult] = (*Stage)(nil)

// NewStage creates a new synth stage.
func NewStage(renderer ports.Renderer, encoder ports.VideoEncoder, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		encoder:  encoder,
		logger:   logger.WithComponent("synth"),
	}
}

// Execute renders input.Frames frames and encodes them into a container.
func (s *Stage) Execute(ctx context.Context, input pipeline.SynthInput) (pipeline.SynthResult, error) {
	result := pipeline.SynthResult{}

	if input.Frames <= 0 {
		return result, fmt.Errorf("%w: %d frames", ErrInvalidInput, input.Frames)
	}
	if input.FPS <= 0 {
		return result, fmt.Errorf("%w: fps %g", ErrInvalidInput, input.FPS)
	}
	if input.Width <= 0 || input.Height <= 0 {
		return result, fmt.Errorf("%w: size %dx%d", ErrInvalidInput, input.Width, input.Height)
	}

	opts := ports.EncoderOptions{
		Bitrate:          input.Bitrate,
		Quality:          input.Quality,
		KeyframeInterval: input.KeyframeInterval,
	}

	s.logger.Info("Generating %d frames at %dx%d, %.1f fps, keyframe every %d", input.Frames, input.Width, input.Height, input.FPS, input.KeyframeInterval)

	if err := s.encoder.Begin(input.Width, input.Height, input.FPS, opts); err != nil {
		return result, fmt.Errorf("begin encoding: %w", err)
	}

	for i := 0; i < input.Frames; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		ts := timestampMs(i, input.FPS)
		if err := s.encoder.EncodeFrame(s.renderFrame(input, i), ts); err != nil {
			return result, fmt.Errorf("encode frame %d at %dms: %w", i, ts, err)
		}
	}

	data, err := s.encoder.End()
	if err != nil {
		return result, fmt.Errorf("end encoding: %w", err)
	}

	result.VideoData = data
	result.Frames = input.Frames
	result.DurationMs = timestampMs(input.Frames, input.FPS)
	result.FileSize = int64(len(data))

	s.logger.Info("Clip encoded: %d frames, %d bytes", result.Frames, result.FileSize)
	return result, nil
}

// renderFrame draws frame index: a box that advances one step per frame
// across the middle row and the frame number in the top-left corner.
func (s *Stage) renderFrame(input pipeline.SynthInput, index int) image.Image {
	w, h := input.Width, input.Height
	canvas := s.renderer.CreateCanvas(w, h, input.Theme.BackgroundColor)

	box := max(2, min(w, h)/4)
	x, y := BoxPosition(w, h, index)
	canvas.DrawRect(x, y, box, box, input.Theme.BoxColor)
	canvas.DrawText(fmt.Sprintf("%04d", index), 4, 10, input.Theme.TextColor)

	return canvas.ToImage()
}

// BoxPosition returns the top-left corner of the moving box on frame index
// of a width x height clip. The box bounces between the left and right edges.
func BoxPosition(width, height, index int) (int, int) {
	box := max(2, min(width, height)/4)
	travel := width - box
	y := (height - box) / 2
	if travel <= 0 {
		return 0, y
	}
	step := max(1, travel/16)
	pos := (index * step) % (2 * travel)
	if pos > travel {
		pos = 2*travel - pos
	}
	return pos, y
}

func timestampMs(frame int, fps float64) int {
	return int(float64(frame) * 1000 / fps)
}
