package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidseq/pkg/pipeline"
)

func TestEnumerateSequences(t *testing.T) {
	tests := []struct {
		name                 string
		frames               int64
		length, step, stride int
		pad                  bool
		want                 []int64
	}{
		{"exact fit", 8, 4, 4, 1, false, []int64{0, 4}},
		{"drops partial tail", 10, 4, 4, 1, false, []int64{0, 4}},
		{"pad keeps partial tail", 10, 4, 4, 1, true, []int64{0, 4, 8}},
		{"overlapping steps", 6, 4, 1, 1, false, []int64{0, 1, 2}},
		{"stride widens the span", 10, 3, 3, 2, false, []int64{0, 3}},
		{"too short", 5, 8, 8, 1, false, nil},
		{"too short padded", 5, 8, 8, 1, true, []int64{0}},
		{"empty clip", 0, 4, 4, 1, true, nil},
		{"zero step", 10, 4, 0, 1, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnumerateSequences(tt.frames, tt.length, tt.step, tt.stride, tt.pad)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildIndex(t *testing.T) {
	clips := newClipSet(t, map[string]int{"a.mp4": 10, "b.mp4": 6})

	specs, err := BuildIndex(clips.open, []string{"a.mp4", "b.mp4"}, IndexOptions{SequenceLength: 4})
	require.NoError(t, err)
	assert.Equal(t, []pipeline.SampleSpec{
		{Path: "a.mp4", StartFrame: 0},
		{Path: "a.mp4", StartFrame: 4},
		{Path: "b.mp4", StartFrame: 0},
	}, specs)

	padded, err := BuildIndex(clips.open, []string{"a.mp4", "b.mp4"}, IndexOptions{SequenceLength: 4, Step: 2, Stride: 2, Pad: true})
	require.NoError(t, err)
	// a: starts 0..8 step 2; b: starts 0..4 step 2.
	assert.Len(t, padded, 8)
}

func TestBuildIndex_Shuffle(t *testing.T) {
	clips := newClipSet(t, map[string]int{"a.mp4": 40})
	opts := IndexOptions{SequenceLength: 2, Shuffle: true, Seed: 7}

	ordered, err := BuildIndex(clips.open, []string{"a.mp4"}, IndexOptions{SequenceLength: 2})
	require.NoError(t, err)
	first, err := BuildIndex(clips.open, []string{"a.mp4"}, opts)
	require.NoError(t, err)
	second, err := BuildIndex(clips.open, []string{"a.mp4"}, opts)
	require.NoError(t, err)

	assert.ElementsMatch(t, ordered, first)
	assert.NotEqual(t, ordered, first)
	assert.Equal(t, first, second)
}

func TestBuildIndex_Errors(t *testing.T) {
	clips := newClipSet(t, map[string]int{"a.mp4": 10})

	_, err := BuildIndex(clips.open, []string{"a.mp4", "missing.mp4"}, IndexOptions{SequenceLength: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.mp4")

	_, err = BuildIndex(clips.open, []string{"a.mp4"}, IndexOptions{})
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = BuildIndex(clips.open, []string{"a.mp4"}, IndexOptions{SequenceLength: 2, Step: -1})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestBatches(t *testing.T) {
	specs := make([]pipeline.SampleSpec, 5)
	for i := range specs {
		specs[i].StartFrame = int64(i)
	}

	batches := Batches(specs, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, int64(4), batches[2][0].StartFrame)

	assert.Nil(t, Batches(specs, 0))
	assert.Nil(t, Batches(nil, 3))
}
