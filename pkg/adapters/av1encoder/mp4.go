package av1encoder

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"
)

// buildMP4 muxes the encoded frames into a fragmented MP4.
func (e *Encoder) buildMP4() ([]byte, error) {
	if len(e.frames) == 0 {
		return nil, fmt.Errorf("no frames to encode")
	}

	timescale := uint32(e.fps * 1000)
	trackID := uint32(1)

	// Create initialization segment
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")

	trak := init.Moov.Trak

	// Set video dimensions
	width := uint16(e.width)
	height := uint16(e.height)

	// Create AV1 codec configuration
	av1C := createAV1ConfigRecord(e.frames)

	// Create av01 sample entry
	av01 := mp4.CreateVisualSampleEntryBox("av01", width, height, av1C)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(av01)

	// Set track header dimensions
	trak.Tkhd.Width = mp4.Fixed32(e.width << 16)
	trak.Tkhd.Height = mp4.Fixed32(e.height << 16)

	var buf bytes.Buffer

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "av01", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}

	// One fragment per GOP, so each fragment starts with a sync sample.
	var frag *mp4.Fragment
	seq := uint32(0)
	for i, frame := range e.frames {
		if frag == nil || (frame.isKeyframe && i > 0) {
			if frag != nil {
				if err := frag.Encode(&buf); err != nil {
					return nil, fmt.Errorf("encode fragment %d: %w", seq, err)
				}
			}
			seq++
			var err error
			frag, err = mp4.CreateFragment(seq, trackID)
			if err != nil {
				return nil, fmt.Errorf("create fragment: %w", err)
			}
		}

		// Duration in timescale units
		var dur uint32
		if i < len(e.frames)-1 {
			nextTs := e.frames[i+1].timestampUs
			dur = uint32((nextTs - frame.timestampUs) * int64(timescale) / 1000000)
		}
		if dur == 0 {
			dur = uint32(float64(timescale) / e.fps)
		}

		decodeTime := uint64(frame.timestampUs) * uint64(timescale) / 1000000

		flags := mp4.NonSyncSampleFlags
		if frame.isKeyframe {
			flags = mp4.SyncSampleFlags
		}

		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(frame.data)),
				Dur:   dur,
			},
			DecodeTime: decodeTime,
			Data:       frame.data,
		})
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment %d: %w", seq, err)
	}

	return buf.Bytes(), nil
}

// createAV1ConfigRecord creates an AV1CodecConfigurationRecord box
func createAV1ConfigRecord(frames []encodedFrame) *mp4.Av1CBox {
	// Find first keyframe to extract sequence header
	var seqHdr []byte
	for _, f := range frames {
		if f.isKeyframe && len(f.data) > 0 {
			// Extract sequence header OBU from the first keyframe
			seqHdr = extractSequenceHeader(f.data)
			break
		}
	}

	return &mp4.Av1CBox{
		CodecConfRec: av1.CodecConfRec{
			Version:              1,
			SeqProfile:           0,
			SeqLevelIdx0:         8, // Level 4.0
			SeqTier0:             0,
			HighBitdepth:         0,
			TwelveBit:            0,
			MonoChrome:           0,
			ChromaSubsamplingX:   1, // 4:2:0
			ChromaSubsamplingY:   1,
			ChromaSamplePosition: 0,
			ConfigOBUs:           seqHdr,
		},
	}
}

// extractSequenceHeader returns the first sequence header OBU, header included.
func extractSequenceHeader(data []byte) []byte {
	if len(data) < 2 {
		return nil
	}

	offset := 0
	for offset < len(data) {
		start := offset
		header := data[offset]
		obuType := (header >> 3) & 0x0F
		hasExtension := (header >> 2) & 0x01
		hasSizeField := (header >> 1) & 0x01
		offset++

		if hasExtension == 1 {
			offset++
		}

		var obuSize int
		if hasSizeField == 1 {
			obuSize, offset = readLeb128(data, offset)
		} else {
			obuSize = len(data) - offset
		}

		end := min(offset+obuSize, len(data))
		if obuType == 1 {
			return data[start:end]
		}
		offset = end
	}

	return nil
}

// readLeb128 reads a LEB128 encoded value
func readLeb128(data []byte, offset int) (int, int) {
	value := 0
	for i := 0; i < 8 && offset < len(data); i++ {
		b := data[offset]
		offset++
		value |= int(b&0x7F) << (i * 7)
		if b&0x80 == 0 {
			break
		}
	}
	return value, offset
}
