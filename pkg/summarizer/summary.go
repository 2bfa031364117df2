// Package summarizer provides summary generation for load runs.
package summarizer

import "time"

// Summary contains all data collected during a load run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	ElapsedMs   int

	// Indexed source videos
	Sources []SourceInfo

	// Loader settings
	Settings Settings

	// Written batches
	Batches []BatchInfo
}

// SourceInfo describes one source video of the index.
type SourceInfo struct {
	Path      string
	Sequences int
}

// Settings contains the loader configuration.
type Settings struct {
	Variant        string
	CropType       string
	Format         string
	SequenceLength int
	Stride         int
	BatchSize      int
	Seed           int64
	Workers        int

	// Output size; zero means the size of the decoded region.
	OutputWidth   int
	OutputHeight  int
	ResizeShorter int
}

// BatchInfo describes one written batch.
type BatchInfo struct {
	Index   int
	Samples int
	Failed  int
	Bytes   int64
}

// Totals sums the batches.
func (s *Summary) Totals() (samples, failed int, bytes int64) {
	for _, b := range s.Batches {
		samples += b.Samples
		failed += b.Failed
		bytes += b.Bytes
	}
	return samples, failed, bytes
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// AddSource records a source video and the number of sequences taken from it.
func (b *Builder) AddSource(path string, sequences int) *Builder {
	b.summary.Sources = append(b.summary.Sources, SourceInfo{Path: path, Sequences: sequences})
	return b
}

// WithSettings sets loader settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// AddBatch records a written batch.
func (b *Builder) AddBatch(batch BatchInfo) *Builder {
	b.summary.Batches = append(b.summary.Batches, batch)
	return b
}

// WithElapsed sets the wall time of the run.
func (b *Builder) WithElapsed(d time.Duration) *Builder {
	b.summary.ElapsedMs = int(d.Milliseconds())
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
