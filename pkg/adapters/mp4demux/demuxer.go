// Package mp4demux implements ports.Demuxer for progressive and fragmented
// MP4 files using mp4ff.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidseq/pkg/adapters/codecdetect"
	"github.com/user/vidseq/pkg/ports"
)

var (
	// ErrNoSamples is returned for a file whose tracks carry no samples.
	ErrNoSamples = errors.New("mp4demux: no samples")

	// ErrSeekOutOfRange is returned when no keyframe satisfies a forward seek.
	ErrSeekOutOfRange = errors.New("mp4demux: seek target beyond last keyframe")
)

// sample locates one access unit. Progressive samples are read lazily from
// offset; fragmented samples are held in data.
type sample struct {
	offset int64
	size   uint32
	data   []byte
	dts    int64
	pts    int64
	dur    uint32
	sync   bool
}

type track struct {
	info    ports.StreamInfo
	samples []sample
	// paramSets is prepended in Annex B form to every H.264 sync sample.
	paramSets []byte
	avcc      bool
	// shift is the edit list media time subtracted from every timestamp.
	shift int64
}

// entry is one step of the file-wide decode order.
type entry struct {
	track  int
	sample int
}

// Demuxer reads packets from an MP4 file.
type Demuxer struct {
	r      io.ReadSeeker
	closer io.Closer
	tracks []*track
	order  []entry
	pos    int
}

// Open opens and indexes the MP4 file at path.
func Open(path string) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	d, err := NewFromReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// OpenDemuxer adapts Open to ports.OpenDemuxerFunc.
func OpenDemuxer(path string) (ports.Demuxer, error) {
	return Open(path)
}

// NewFromReader indexes an MP4 held by reader. The reader must stay valid
// until Close.
func NewFromReader(reader io.ReadSeeker) (*Demuxer, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	d := &Demuxer{r: reader}
	if mp4File.IsFragmented() {
		err = d.indexFragmented(mp4File)
	} else {
		err = d.indexProgressive(mp4File)
	}
	if err != nil {
		return nil, err
	}
	if len(d.order) == 0 {
		return nil, ErrNoSamples
	}
	for _, t := range d.tracks {
		finishTrack(t)
	}
	return d, nil
}

func newTrack(index int, trak *mp4.TrakBox) *track {
	t := &track{
		info: ports.StreamInfo{
			Index:    index,
			Codec:    codecdetect.FromTrack(trak),
			TimeBase: ports.Rational{Num: 1, Den: 1000},
		},
		shift: editShift(trak),
	}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		t.info.TimeBase.Den = int64(trak.Mdia.Mdhd.Timescale)
	}

	vse := codecdetect.SampleEntry(trak)
	if vse != nil {
		t.info.Width = int(vse.Width)
		t.info.Height = int(vse.Height)
		if vse.AvcC != nil {
			t.avcc = true
			for _, sps := range vse.AvcC.SPSnalus {
				t.paramSets = append(t.paramSets, 0, 0, 0, 1)
				t.paramSets = append(t.paramSets, sps...)
			}
			for _, pps := range vse.AvcC.PPSnalus {
				t.paramSets = append(t.paramSets, 0, 0, 0, 1)
				t.paramSets = append(t.paramSets, pps...)
			}
			t.info.Extradata = t.paramSets
		}
	}
	return t
}

// editShift returns the media time of the first non-empty edit. Encoders
// that reorder frames use it to move the first presented frame back to 0.
// Empty edits (media time -1) only delay presentation and are ignored.
func editShift(trak *mp4.TrakBox) int64 {
	if trak.Edts == nil {
		return 0
	}
	for _, elst := range trak.Edts.Elst {
		for _, e := range elst.Entries {
			if e.MediaTime >= 0 {
				return e.MediaTime
			}
		}
	}
	return 0
}

func (d *Demuxer) indexProgressive(mp4File *mp4.File) error {
	if mp4File.Moov == nil {
		return fmt.Errorf("no moov box found")
	}

	tracks := codecdetect.VideoTracks(mp4File)
	if len(tracks) == 0 {
		return ports.ErrNoVideoStream
	}

	for idx, trak := range tracks {
		t := newTrack(idx, trak)
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
			return fmt.Errorf("track %d: no sample table found", idx)
		}
		stbl := trak.Mdia.Minf.Stbl
		if stbl.Stsz == nil || stbl.Stsc == nil {
			return fmt.Errorf("track %d: missing stsz or stsc box", idx)
		}

		syncSamples := make(map[uint32]bool)
		if stbl.Stss != nil {
			for _, nr := range stbl.Stss.SampleNumber {
				syncSamples[nr] = true
			}
		}

		for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
			offset, err := sampleOffset(stbl, nr)
			if err != nil {
				return fmt.Errorf("track %d sample %d: %w", idx, nr, err)
			}
			s := sample{
				offset: int64(offset),
				size:   stbl.Stsz.GetSampleSize(int(nr)),
				sync:   stbl.Stss == nil || syncSamples[nr],
			}
			if stbl.Stts != nil {
				dts, dur := stbl.Stts.GetDecodeTime(nr)
				s.dts, s.dur = int64(dts)-t.shift, dur
			}
			s.pts = s.dts
			if stbl.Ctts != nil {
				s.pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
			}
			t.samples = append(t.samples, s)
		}
		d.tracks = append(d.tracks, t)
	}

	// Progressive decode order is file order.
	for ti, t := range d.tracks {
		for si := range t.samples {
			d.order = append(d.order, entry{track: ti, sample: si})
		}
	}
	sort.SliceStable(d.order, func(i, j int) bool {
		a := d.tracks[d.order[i].track].samples[d.order[i].sample]
		b := d.tracks[d.order[j].track].samples[d.order[j].sample]
		return a.offset < b.offset
	})
	return nil
}

// sampleOffset returns the absolute file offset of sample nr.
func sampleOffset(stbl *mp4.StblBox, nr uint32) (uint64, error) {
	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return offset, nil
}

func (d *Demuxer) indexFragmented(mp4File *mp4.File) error {
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return fmt.Errorf("no init segment found")
	}

	tracks := codecdetect.VideoTracks(mp4File)
	if len(tracks) == 0 {
		return ports.ErrNoVideoStream
	}

	byID := make(map[uint32]int)
	trexs := make(map[uint32]*mp4.TrexBox)
	for idx, trak := range tracks {
		d.tracks = append(d.tracks, newTrack(idx, trak))
		byID[trak.Tkhd.TrackID] = idx
	}
	if mvex := mp4File.Init.Moov.Mvex; mvex != nil {
		for _, trex := range mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				ti, ok := byID[traf.Tfhd.TrackID]
				if !ok {
					continue
				}
				full, err := frag.GetFullSamples(trexs[traf.Tfhd.TrackID])
				if err != nil {
					return fmt.Errorf("get samples: %w", err)
				}
				t := d.tracks[ti]
				for _, fs := range full {
					t.samples = append(t.samples, sample{
						size: fs.Size,
						data: fs.Data,
						dts:  int64(fs.DecodeTime) - t.shift,
						pts:  int64(fs.DecodeTime) + int64(fs.CompositionTimeOffset) - t.shift,
						dur:  fs.Dur,
						sync: fs.Flags == mp4.SyncSampleFlags,
					})
					d.order = append(d.order, entry{track: ti, sample: len(t.samples) - 1})
				}
			}
		}
	}
	return nil
}

// finishTrack fills the derived stream statistics.
func finishTrack(t *track) {
	n := int64(len(t.samples))
	t.info.FrameCount = n
	if n == 0 {
		return
	}

	var total int64
	for _, s := range t.samples {
		total += int64(s.dur)
	}
	t.info.Duration = total
	if total > 0 {
		t.info.AvgFrameRate = reduce(ports.Rational{Num: n * t.info.TimeBase.Den, Den: total * t.info.TimeBase.Num})
	}
}

func reduce(r ports.Rational) ports.Rational {
	a, b := r.Num, r.Den
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return r
	}
	return ports.Rational{Num: r.Num / a, Den: r.Den / a}
}

// Streams lists the video streams of the file.
func (d *Demuxer) Streams() []ports.StreamInfo {
	infos := make([]ports.StreamInfo, len(d.tracks))
	for i, t := range d.tracks {
		infos[i] = t.info
	}
	return infos
}

// BestVideoStream returns the video stream with the most samples.
func (d *Demuxer) BestVideoStream() (ports.StreamInfo, error) {
	best := -1
	for i, t := range d.tracks {
		if len(t.samples) == 0 {
			continue
		}
		if best < 0 || len(t.samples) > len(d.tracks[best].samples) {
			best = i
		}
	}
	if best < 0 {
		return ports.StreamInfo{}, ports.ErrNoVideoStream
	}
	return d.tracks[best].info, nil
}

// ReadPacket returns the next packet in decode order.
func (d *Demuxer) ReadPacket() (*ports.Packet, error) {
	if d.pos >= len(d.order) {
		return nil, io.EOF
	}
	e := d.order[d.pos]
	d.pos++

	t := d.tracks[e.track]
	s := t.samples[e.sample]

	data := s.data
	if data == nil {
		data = make([]byte, s.size)
		if _, err := d.r.Seek(s.offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to sample: %w", err)
		}
		if _, err := io.ReadFull(d.r, data); err != nil {
			return nil, fmt.Errorf("read sample: %w", err)
		}
	}

	if t.avcc {
		annexB := avccToAnnexB(data)
		if s.sync && len(t.paramSets) > 0 {
			data = make([]byte, 0, len(t.paramSets)+len(annexB))
			data = append(data, t.paramSets...)
			data = append(data, annexB...)
		} else {
			data = annexB
		}
	}

	return &ports.Packet{
		StreamIndex: t.info.Index,
		PTS:         s.pts,
		DTS:         s.dts,
		Duration:    int64(s.dur),
		Keyframe:    s.sync,
		Data:        data,
	}, nil
}

// Seek positions the reader at a keyframe of the best video stream.
// timestamp is in microseconds.
func (d *Demuxer) Seek(timestamp int64, backward bool) error {
	info, err := d.BestVideoStream()
	if err != nil {
		return err
	}
	t := d.tracks[info.Index]
	target := ports.Rescale(timestamp, ports.MicrosecondBase, info.TimeBase)

	chosen := -1
	for i, s := range t.samples {
		if !s.sync {
			continue
		}
		if backward {
			if s.pts <= target || chosen < 0 {
				chosen = i
			}
			if s.pts > target {
				break
			}
		} else if s.pts >= target {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		return fmt.Errorf("%w: %d us", ErrSeekOutOfRange, timestamp)
	}

	for pos, e := range d.order {
		if e.track == info.Index && e.sample == chosen {
			d.pos = pos
			return nil
		}
	}
	return fmt.Errorf("mp4demux: sample %d not in decode order", chosen)
}

// Close releases the underlying file if Open created it.
func (d *Demuxer) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// avccToAnnexB converts length-prefixed NAL units to start-code prefixed ones.
func avccToAnnexB(data []byte) []byte {
	result := make([]byte, 0, len(data)+16)
	offset := 0
	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if offset+naluLen > len(data) {
			break
		}
		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}
	return result
}

var _ ports.Demuxer = (*Demuxer)(nil)
