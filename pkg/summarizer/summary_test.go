package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/vidseq/pkg/mocks"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_Sources(t *testing.T) {
	summary := NewBuilder().
		AddSource("a.mp4", 3).
		AddSource("b.mp4", 5).
		Build()

	if len(summary.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(summary.Sources))
	}
	if summary.Sources[1].Path != "b.mp4" || summary.Sources[1].Sequences != 5 {
		t.Errorf("unexpected second source %+v", summary.Sources[1])
	}
}

func TestBuilder_WithSettings(t *testing.T) {
	settings := Settings{
		Variant:        "fused",
		CropType:       "random",
		Format:         "rgb24",
		SequenceLength: 8,
		Stride:         2,
		BatchSize:      4,
		Seed:           7,
	}
	summary := NewBuilder().WithSettings(settings).Build()

	if summary.Settings != settings {
		t.Errorf("expected settings %+v, got %+v", settings, summary.Settings)
	}
}

func TestBuilder_WithElapsed(t *testing.T) {
	summary := NewBuilder().WithElapsed(1500 * time.Millisecond).Build()

	if summary.ElapsedMs != 1500 {
		t.Errorf("expected ElapsedMs 1500, got %d", summary.ElapsedMs)
	}
}

func TestSummary_Totals(t *testing.T) {
	summary := NewBuilder().
		AddBatch(BatchInfo{Index: 0, Samples: 4, Failed: 1, Bytes: 100}).
		AddBatch(BatchInfo{Index: 1, Samples: 2, Bytes: 50}).
		Build()

	samples, failed, bytes := summary.Totals()
	if samples != 6 || failed != 1 || bytes != 150 {
		t.Errorf("Totals() = %d, %d, %d; want 6, 1, 150", samples, failed, bytes)
	}
}

func TestFormatFunc(t *testing.T) {
	var f Formatter = FormatFunc(func(s *Summary) string {
		return s.Settings.Variant
	})

	got := f.Format(&Summary{Settings: Settings{Variant: "plain"}})
	if got != "plain" {
		t.Errorf("expected 'plain', got %q", got)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(*Summary) string { return "# ok\n" }), fs)

	if err := w.Write("out/run/summary.md", NewSummary()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, ok := fs.GetFile("out/run/summary.md")
	if !ok {
		t.Fatal("summary was not written")
	}
	if string(data) != "# ok\n" {
		t.Errorf("unexpected content %q", data)
	}
	if exists, _ := fs.Exists("out/run"); !exists {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return errors.New("disk full") }
	w := NewWriter(NewMarkdownFormatter(), fs)

	err := w.Write("summary.md", NewSummary())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}
