package wavfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"recorder2rc/internal/audio"
)

const (
	riffHeaderSize = 12
	chunkHeaderLen = 8
	fmtBodySize    = 16
	cuePointSize   = 24
	formatPCM      = 1
	formatExtended = 0xFFFE
)

var (
	// ErrNotWAV indicates the file is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrUnsupportedEncoding indicates a non-PCM payload.
	ErrUnsupportedEncoding = errors.New("unsupported wav encoding")
	// ErrFormatMismatch indicates the stream format differs from the run format.
	ErrFormatMismatch = errors.New("pcm format mismatch")
)

// rawChunk is a chunk this package does not interpret; it is preserved verbatim.
type rawChunk struct {
	id   [4]byte
	body []byte
}

// Info describes the layout of a WAV file.
type Info struct {
	Format     audio.Format
	DataOffset int64
	DataSize   int64
	Markers    []audio.Marker
	// trailing holds uninterpreted chunks found after the data chunk.
	trailing []rawChunk
}

// Frames returns the number of whole frames in the data chunk.
func (i *Info) Frames() int64 {
	width := int64(i.Format.FrameWidth())
	if width <= 0 {
		return 0
	}
	return i.DataSize / width
}

// Inspect parses the chunk list of the WAV file at path.
func Inspect(path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return parse(file, stat.Size())
}

func parse(r io.ReadSeeker, fileSize int64) (*Info, error) {
	header := make([]byte, riffHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	info := &Info{DataOffset: -1}
	var (
		haveFmt  bool
		cues     = map[uint32]int64{}
		cueOrder []uint32
		labels   = map[uint32]string{}
	)

	offset := int64(riffHeaderSize)
	chunkHeader := make([]byte, chunkHeaderLen)
	for offset+chunkHeaderLen <= fileSize {
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			break
		}
		id := string(chunkHeader[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		bodyStart := offset + chunkHeaderLen
		if bodyStart+size > fileSize {
			size = fileSize - bodyStart
		}

		switch id {
		case "fmt ":
			body, err := readBody(r, size)
			if err != nil {
				return nil, err
			}
			format, err := parseFormat(body)
			if err != nil {
				return nil, err
			}
			info.Format = format
			haveFmt = true
		case "data":
			info.DataOffset = bodyStart
			info.DataSize = size
		case "cue ":
			body, err := readBody(r, size)
			if err != nil {
				return nil, err
			}
			for _, cue := range parseCues(body) {
				if _, seen := cues[cue.id]; !seen {
					cueOrder = append(cueOrder, cue.id)
				}
				cues[cue.id] = cue.offset
			}
		case "LIST":
			body, err := readBody(r, size)
			if err != nil {
				return nil, err
			}
			if len(body) >= 4 && string(body[0:4]) == "adtl" {
				parseLabels(body[4:], labels)
			} else if info.DataOffset >= 0 {
				info.trailing = append(info.trailing, newRawChunk(id, body))
			}
		default:
			if info.DataOffset >= 0 {
				body, err := readBody(r, size)
				if err != nil {
					return nil, err
				}
				info.trailing = append(info.trailing, newRawChunk(id, body))
			}
		}

		offset = bodyStart + size + size%2
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	if info.DataOffset < 0 {
		return nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
	}
	if width := int64(info.Format.FrameWidth()); width > 0 {
		info.DataSize -= info.DataSize % width
	}

	info.Markers = make([]audio.Marker, 0, len(cueOrder))
	for _, id := range cueOrder {
		label, ok := labels[id]
		if !ok {
			label = strconv.FormatUint(uint64(id), 10)
		}
		info.Markers = append(info.Markers, audio.Marker{FrameOffset: cues[id], Label: label})
	}
	return info, nil
}

func readBody(r io.Reader, size int64) ([]byte, error) {
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read chunk body: %w", err)
	}
	return body, nil
}

func newRawChunk(id string, body []byte) rawChunk {
	var chunk rawChunk
	copy(chunk.id[:], id)
	chunk.body = body
	return chunk
}

func parseFormat(body []byte) (audio.Format, error) {
	if len(body) < fmtBodySize {
		return audio.Format{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
	}
	tag := binary.LittleEndian.Uint16(body[0:2])
	if tag != formatPCM && tag != formatExtended {
		return audio.Format{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, tag)
	}
	return audio.Format{
		Channels:      int(binary.LittleEndian.Uint16(body[2:4])),
		SampleRate:    int(binary.LittleEndian.Uint32(body[4:8])),
		BitsPerSample: int(binary.LittleEndian.Uint16(body[14:16])),
	}, nil
}

type cuePoint struct {
	id     uint32
	offset int64
}

func parseCues(body []byte) []cuePoint {
	if len(body) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(body[0:4]))
	points := make([]cuePoint, 0, count)
	for i := 0; i < count; i++ {
		start := 4 + i*cuePointSize
		if start+cuePointSize > len(body) {
			break
		}
		entry := body[start : start+cuePointSize]
		points = append(points, cuePoint{
			id:     binary.LittleEndian.Uint32(entry[0:4]),
			offset: int64(binary.LittleEndian.Uint32(entry[20:24])),
		})
	}
	return points
}

func parseLabels(body []byte, labels map[uint32]string) {
	for len(body) >= chunkHeaderLen {
		id := string(body[0:4])
		size := int(binary.LittleEndian.Uint32(body[4:8]))
		body = body[chunkHeaderLen:]
		if size > len(body) {
			size = len(body)
		}
		if id == "labl" && size >= 4 {
			cueID := binary.LittleEndian.Uint32(body[0:4])
			text := body[4:size]
			if idx := bytes.IndexByte(text, 0); idx >= 0 {
				text = text[:idx]
			}
			labels[cueID] = string(text)
		}
		advance := size + size%2
		if advance > len(body) {
			advance = len(body)
		}
		body = body[advance:]
	}
}

// encodeHeader returns the RIFF, fmt and data chunk headers for an empty file.
func encodeHeader(format audio.Format) []byte {
	buf := make([]byte, riffHeaderSize+chunkHeaderLen+fmtBodySize+chunkHeaderLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)-8))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], fmtBodySize)
	width := format.FrameWidth()
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(format.SampleRate*width))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(width))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(format.BitsPerSample))

	copy(buf[36:40], "data")
	return buf
}

// encodeTrailer renders the chunks that follow the data payload: preserved
// chunks first, then cue points and their labels. Markers are written in
// offset order with cue ids starting at 1.
func encodeTrailer(markers []audio.Marker, preserved []rawChunk) []byte {
	var buf bytes.Buffer
	for _, chunk := range preserved {
		writeChunk(&buf, string(chunk.id[:]), chunk.body)
	}
	if len(markers) == 0 {
		return buf.Bytes()
	}

	sorted := audio.SortMarkers(markers)
	cue := make([]byte, 4+cuePointSize*len(sorted))
	binary.LittleEndian.PutUint32(cue[0:4], uint32(len(sorted)))
	for i, marker := range sorted {
		entry := cue[4+i*cuePointSize : 4+(i+1)*cuePointSize]
		binary.LittleEndian.PutUint32(entry[0:4], uint32(i+1))
		binary.LittleEndian.PutUint32(entry[4:8], uint32(marker.FrameOffset))
		copy(entry[8:12], "data")
		binary.LittleEndian.PutUint32(entry[20:24], uint32(marker.FrameOffset))
	}
	writeChunk(&buf, "cue ", cue)

	var adtl bytes.Buffer
	adtl.WriteString("adtl")
	for i, marker := range sorted {
		label := make([]byte, 4+len(marker.Label)+1)
		binary.LittleEndian.PutUint32(label[0:4], uint32(i+1))
		copy(label[4:], marker.Label)
		writeChunk(&adtl, "labl", label)
	}
	writeChunk(&buf, "LIST", adtl.Bytes())
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, id string, body []byte) {
	var header [chunkHeaderLen]byte
	copy(header[0:4], id)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)
	if len(body)%2 == 1 {
		buf.WriteByte(0)
	}
}
