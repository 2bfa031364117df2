package h264decoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// process is one ffmpeg invocation decoding a raw H.264 elementary stream.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	done   chan struct{}

	closeOnce sync.Once
}

// deliverFunc receives each decoded picture, then a final nil picture with
// the reason output ended.
type deliverFunc func(p *process, frame []byte, err error)

func ffmpegArgs(width, height int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-probesize", "32768",
		"-analyzeduration", "0",
		"-f", "h264",
		"-i", "pipe:0",
		"-vsync", "passthrough",
		"-s", strconv.Itoa(width) + "x" + strconv.Itoa(height),
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"pipe:1",
	}
}

func startProcess(ffmpegPath string, width, height int, deliver deliverFunc) (*process, error) {
	p := &process{done: make(chan struct{})}
	p.cmd = exec.Command(ffmpegPath, ffmpegArgs(width, height)...)
	p.cmd.Stderr = &p.stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	p.stdin = stdin

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	frameSize := width*height + 2*((width+1)/2)*((height+1)/2)
	go p.read(stdout, frameSize, deliver)
	return p, nil
}

func (p *process) read(stdout io.Reader, frameSize int, deliver deliverFunc) {
	defer close(p.done)
	for {
		buf := make([]byte, frameSize)
		_, err := io.ReadFull(stdout, buf)
		if err == nil {
			deliver(p, buf, nil)
			continue
		}

		waitErr := p.cmd.Wait()
		switch {
		case errors.Is(err, io.EOF) && waitErr == nil:
			deliver(p, nil, nil)
		case waitErr != nil:
			deliver(p, nil, fmt.Errorf("ffmpeg: %v: %s", waitErr, bytes.TrimSpace(p.stderr.Bytes())))
		default:
			deliver(p, nil, fmt.Errorf("read frame: %w", err))
		}
		return
	}
}

func (p *process) write(data []byte) error {
	_, err := p.stdin.Write(data)
	return err
}

func (p *process) closeInput() {
	p.closeOnce.Do(func() { p.stdin.Close() })
}

// kill terminates ffmpeg and waits for the reader to finish.
func (p *process) kill() {
	p.closeInput()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
}
