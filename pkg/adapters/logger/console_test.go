package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/vidseq/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriter(ports.LevelInfo, &out, &errOut, false)

	l.Debug("hidden %d", 1)
	l.Info("decoded %d frames", 8)
	l.Warn("sample %d failed", 3)
	l.Error("fatal")

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("debug message leaked at info level: %q", out.String())
	}
	if got := out.String(); got != "decoded 8 frames\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "sample 3 failed\nfatal\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestConsoleLogger_Component(t *testing.T) {
	var out bytes.Buffer
	l := NewWriter(ports.LevelDebug, &out, &out, false)

	l.WithComponent("load").WithComponent("worker-1").Debug("seek to frame %d", 12)

	if got := out.String(); got != "[load.worker-1] seek to frame 12\n" {
		t.Errorf("output = %q", got)
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var out bytes.Buffer
	l := NewWriter(ports.LevelQuiet, &out, &out, true)

	l.Error("nothing")
	if out.Len() != 0 {
		t.Errorf("quiet logger wrote %q", out.String())
	}
}
