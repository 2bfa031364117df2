package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// WithVersion sets the version shown in the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(summary *Summary) string {
	t := f.translate
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", t("Load Summary"))
	fmt.Fprintf(&sb, "- **%s**: %s\n", t("Generated"), summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if summary.ElapsedMs > 0 {
		fmt.Fprintf(&sb, "- **%s**: %d ms\n", t("Elapsed"), summary.ElapsedMs)
	}
	sb.WriteString("\n")

	s := summary.Settings
	fmt.Fprintf(&sb, "## %s\n\n", t("Settings"))
	fmt.Fprintf(&sb, "| %s | %s |\n|---|---|\n", t("Setting"), t("Value"))
	row := func(label string, value any) {
		fmt.Fprintf(&sb, "| %s | %v |\n", t(label), value)
	}
	row("Variant", s.Variant)
	row("Crop Type", s.CropType)
	row("Output Format", s.Format)
	row("Sequence Length", s.SequenceLength)
	row("Stride", s.Stride)
	row("Output Size", f.outputSize(s))
	row("Batch Size", s.BatchSize)
	row("Seed", s.Seed)
	if s.Workers > 0 {
		row("Workers", s.Workers)
	}
	sb.WriteString("\n")

	if len(summary.Sources) > 0 {
		fmt.Fprintf(&sb, "## %s\n\n", t("Sources"))
		fmt.Fprintf(&sb, "| %s | %s |\n|---|---:|\n", t("Source"), t("Sequences"))
		for _, src := range summary.Sources {
			fmt.Fprintf(&sb, "| %s | %d |\n", src.Path, src.Sequences)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## %s\n\n", t("Batches"))
	if len(summary.Batches) == 0 {
		fmt.Fprintf(&sb, "%s\n", t("None"))
	} else {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n|---:|---:|---:|---:|\n", t("Batch"), t("Samples"), t("Failed"), t("Size"))
		for _, b := range summary.Batches {
			fmt.Fprintf(&sb, "| %d | %d | %d | %s |\n", b.Index, b.Samples, b.Failed, formatBytes(b.Bytes))
		}
		samples, failed, bytes := summary.Totals()
		fmt.Fprintf(&sb, "| **%s** | %d | %d | %s |\n", t("Total"), samples, failed, formatBytes(bytes))
	}

	if f.version != "" {
		fmt.Fprintf(&sb, "\n---\n\n%s vidseq %s\n", t("Generated by"), f.version)
	}

	return sb.String()
}

func (f *MarkdownFormatter) outputSize(s Settings) string {
	switch {
	case s.OutputWidth > 0 && s.OutputHeight > 0:
		return fmt.Sprintf("%dx%d", s.OutputWidth, s.OutputHeight)
	case s.ResizeShorter > 0:
		return fmt.Sprintf("%s %d", f.translate("Shorter side"), s.ResizeShorter)
	default:
		return f.translate("Source")
	}
}

// formatBytes formats a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}
