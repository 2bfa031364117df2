// Package h264encoder produces progressive H.264 MP4 clips by piping RGBA
// frames into an ffmpeg process.
package h264encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/user/vidseq/pkg/adapters/h264decoder"
	"github.com/user/vidseq/pkg/ports"
)

// Encoder implements ports.VideoEncoder with an ffmpeg subprocess.
type Encoder struct {
	mu sync.Mutex

	width  int
	height int

	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderr     bytes.Buffer
	tempPath   string
	frame      *image.RGBA
	frameCount int
}

// New creates a new H.264 encoder.
func New() *Encoder {
	return &Encoder{}
}

// IsAvailable reports whether an ffmpeg binary can be found.
func IsAvailable() bool {
	return h264decoder.IsAvailable()
}

// ffmpegArgs builds the command line. B-frames are disabled so decode
// order equals presentation order.
func ffmpegArgs(width, height int, fps float64, opts ports.EncoderOptions, out string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-bf", "0",
	}

	crf := 23
	if opts.Quality > 0 && opts.Quality <= 63 {
		// 0-63 scale onto x264's 0-51.
		crf = opts.Quality * 51 / 63
	}
	args = append(args, "-crf", strconv.Itoa(crf))

	if opts.Bitrate > 0 {
		args = append(args, "-b:v", strconv.Itoa(opts.Bitrate)+"k")
	}
	if opts.KeyframeInterval > 0 {
		g := strconv.Itoa(opts.KeyframeInterval)
		args = append(args, "-g", g, "-keyint_min", g, "-sc_threshold", "0")
	}

	return append(args, "-movflags", "+faststart", "-f", "mp4", out)
}

// Begin starts the ffmpeg process.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("h264encoder: dimensions must be positive and even, got %dx%d", width, height)
	}
	if fps <= 0 {
		return fmt.Errorf("h264encoder: invalid frame rate %g", fps)
	}
	e.cleanup()

	ffmpegPath, err := h264decoder.FindFFmpeg()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "vidseq_h264_*.mp4")
	if err != nil {
		return fmt.Errorf("h264encoder: create temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command(ffmpegPath, ffmpegArgs(width, height, fps, opts, tmp.Name())...)
	e.stderr.Reset()
	cmd.Stderr = &e.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("h264encoder: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("h264encoder: start ffmpeg: %w", err)
	}

	e.width, e.height = width, height
	e.cmd, e.stdin, e.tempPath = cmd, stdin, tmp.Name()
	e.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	e.frameCount = 0
	return nil
}

// EncodeFrame writes one frame. Frames are spaced at the constant rate
// given to Begin, so timestampMs only has to be increasing.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil {
		return ErrNotInitialized
	}

	draw.Draw(e.frame, e.frame.Rect, img, img.Bounds().Min, draw.Src)
	if _, err := e.stdin.Write(e.frame.Pix); err != nil {
		return fmt.Errorf("%w: write frame at %dms: %w: %s", ErrEncodingFailed, timestampMs, err, e.stderr.String())
	}
	e.frameCount++
	return nil
}

// End waits for ffmpeg and returns the MP4 file.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil {
		return nil, ErrNotInitialized
	}
	defer e.cleanup()

	e.stdin.Close()
	e.stdin = nil
	err := e.cmd.Wait()
	e.cmd = nil
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrEncodingFailed, err, e.stderr.String())
	}
	if e.frameCount == 0 {
		return nil, ErrNoFrames
	}

	data, err := os.ReadFile(e.tempPath)
	if err != nil {
		return nil, fmt.Errorf("h264encoder: read output: %w", err)
	}
	return data, nil
}

// cleanup stops a running process and removes the temp file.
func (e *Encoder) cleanup() {
	if e.stdin != nil {
		e.stdin.Close()
		e.stdin = nil
	}
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
	}
	e.cmd = nil
	if e.tempPath != "" {
		os.Remove(e.tempPath)
		e.tempPath = ""
	}
}

var _ ports.VideoEncoder = (*Encoder)(nil)
