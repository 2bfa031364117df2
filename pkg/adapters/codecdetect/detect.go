// Package codecdetect identifies the video codec of MP4 tracks.
package codecdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidseq/pkg/ports"
)

// DetectFromFile returns the codec of the first video track in an MP4 file.
func DetectFromFile(path string) (ports.CodecID, error) {
	f, err := os.Open(path)
	if err != nil {
		return ports.CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the codec and rewinds the reader.
func DetectFromReader(reader io.ReadSeeker) (ports.CodecID, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return ports.CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return ports.CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	return DetectFromMP4File(mp4File)
}

// DetectFromBytes detects the codec from MP4 data bytes.
func DetectFromBytes(data []byte) (ports.CodecID, error) {
	return DetectFromReader(bytes.NewReader(data))
}

// DetectFromMP4File inspects an already parsed file. A video track with an
// unrecognised sample entry is reported as CodecUnknown without error.
func DetectFromMP4File(mp4File *mp4.File) (ports.CodecID, error) {
	found := false
	for _, trak := range VideoTracks(mp4File) {
		found = true
		if codec := FromTrack(trak); codec != ports.CodecUnknown {
			return codec, nil
		}
	}
	if !found {
		return ports.CodecUnknown, ports.ErrNoVideoStream
	}
	return ports.CodecUnknown, nil
}

// VideoTracks returns the video tracks of a progressive or fragmented file.
func VideoTracks(mp4File *mp4.File) []*mp4.TrakBox {
	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return nil
	}

	var tracks []*mp4.TrakBox
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			tracks = append(tracks, trak)
		}
	}
	return tracks
}

// SampleEntry returns the visual sample entry of a track, or nil.
func SampleEntry(trak *mp4.TrakBox) *mp4.VisualSampleEntryBox {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return vse
		}
	}
	return nil
}

// FromTrack maps the sample entry type of a track to a codec.
func FromTrack(trak *mp4.TrakBox) ports.CodecID {
	vse := SampleEntry(trak)
	if vse == nil {
		return ports.CodecUnknown
	}
	return FromSampleEntryType(vse.Type())
}

// FromSampleEntryType maps a four-character sample entry type to a codec.
func FromSampleEntryType(fourCC string) ports.CodecID {
	switch fourCC {
	case "avc1", "avc3":
		return ports.CodecH264
	case "av01":
		return ports.CodecAV1
	case "hvc1", "hev1":
		return ports.CodecHEVC
	default:
		return ports.CodecUnknown
	}
}
