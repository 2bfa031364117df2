// Package filesink writes loader debug output as files.
package filesink

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/user/vidseq/pkg/ports"
)

var (
	overlayColor = color.RGBA{R: 0x4a, G: 0xde, B: 0x80, A: 0xff}
	labelColor   = color.White
)

// Sink saves debug output under a base directory.
//
// Layout:
//
//	<base>/batch-0001.json
//	<base>/sample-0003/overlay.png
//	<base>/sample-0003/frame-0000.png
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new file sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveCropOverlay draws the crop window over the frame and saves it as PNG.
func (s *Sink) SaveCropOverlay(sample int, frame image.Image, window image.Rectangle) error {
	b := frame.Bounds()
	canvas := s.renderer.CreateCanvas(b.Dx(), b.Dy(), color.Black)
	canvas.DrawImage(frame, 0, 0)
	if !window.Empty() {
		canvas.DrawRectStroke(window.Min.X, window.Min.Y, window.Dx(), window.Dy(), overlayColor, 2)
	}
	canvas.DrawText(fmt.Sprintf("#%d %dx%d+%d+%d", sample, window.Dx(), window.Dy(), window.Min.X, window.Min.Y), 4, 10, labelColor)

	data, err := s.renderer.EncodeImage(canvas.ToImage(), ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode crop overlay: %w", err)
	}
	return s.write(s.sampleDir(sample), "overlay.png", data)
}

// SaveSequenceFrame saves one output frame of a sample as PNG.
func (s *Sink) SaveSequenceFrame(sample, index int, img image.Image) error {
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode sequence frame: %w", err)
	}
	return s.write(s.sampleDir(sample), fmt.Sprintf("frame-%04d.png", index), data)
}

// SaveBatchManifest saves the batch description.
func (s *Sink) SaveBatchManifest(batch int, data []byte) error {
	return s.write(s.baseDir, fmt.Sprintf("batch-%04d.json", batch), data)
}

func (s *Sink) sampleDir(sample int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("sample-%04d", sample))
}

func (s *Sink) write(dir, name string, data []byte) error {
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(dir, name), data)
}

var _ ports.DebugSink = (*Sink)(nil)
