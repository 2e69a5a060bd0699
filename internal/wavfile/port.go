package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"recorder2rc/internal/audio"
)

// Port implements audio.Port over WAV files addressed by path.
type Port struct {
	format audio.Format

	mu      sync.Mutex
	pending map[string][]audio.Marker
}

var _ audio.Port = (*Port)(nil)

// New returns a Port that reads and writes streams in the given format.
func New(format audio.Format) (*Port, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &Port{format: format, pending: make(map[string][]audio.Marker)}, nil
}

// Format returns the run format.
func (p *Port) Format() audio.Format {
	return p.format
}

func (p *Port) inspect(name string) (*Info, error) {
	info, err := Inspect(name)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", filepath.Base(name), err)
	}
	if info.Format != p.format {
		return nil, fmt.Errorf("%s is %s, expected %s: %w", filepath.Base(name), info.Format, p.format, ErrFormatMismatch)
	}
	return info, nil
}

// OpenRead opens the whole stream for reading.
func (p *Port) OpenRead(name string) (audio.FrameReader, error) {
	return p.OpenReadRange(name, 0, -1)
}

// OpenReadRange opens frames [start, end) for reading. Bounds are clamped to
// the stream; a negative end reads to the end.
func (p *Port) OpenReadRange(name string, start, end int64) (audio.FrameReader, error) {
	info, err := p.inspect(name)
	if err != nil {
		return nil, err
	}
	frames := info.Frames()
	start = max(0, min(start, frames))
	if end < 0 || end > frames {
		end = frames
	}
	end = max(end, start)

	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	width := int64(p.format.FrameWidth())
	return &reader{
		file:      file,
		width:     int(width),
		pos:       info.DataOffset + start*width,
		remaining: (end - start) * width,
	}, nil
}

// OpenWrite opens a stream for writing. With append set, an existing stream
// keeps its frames and markers and new frames go after them; otherwise the
// stream is replaced.
func (p *Port) OpenWrite(name string, appendFrames bool) (audio.FrameWriter, error) {
	if appendFrames {
		if _, err := os.Stat(name); err == nil {
			return p.openAppend(name)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("create stream directory: %w", err)
	}
	file, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	header := encodeHeader(p.format)
	if _, err := file.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return &writer{
		file:       file,
		width:      p.format.FrameWidth(),
		dataOffset: int64(len(header)),
	}, nil
}

func (p *Port) openAppend(name string) (audio.FrameWriter, error) {
	info, err := p.inspect(name)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &writer{
		file:       file,
		width:      p.format.FrameWidth(),
		dataOffset: info.DataOffset,
		dataSize:   info.DataSize,
		markers:    info.Markers,
		preserved:  info.trailing,
	}, nil
}

// Markers returns the committed markers of a stream in file order.
func (p *Port) Markers(name string) ([]audio.Marker, error) {
	info, err := p.inspect(name)
	if err != nil {
		return nil, err
	}
	return append([]audio.Marker(nil), info.Markers...), nil
}

// FrameCount returns the number of frames in a stream.
func (p *Port) FrameCount(name string) (int64, error) {
	info, err := p.inspect(name)
	if err != nil {
		return 0, err
	}
	return info.Frames(), nil
}

// AddMarker queues a marker for the next CommitMetadata on name.
func (p *Port) AddMarker(name string, frameOffset int64, label string) error {
	if frameOffset < 0 {
		return fmt.Errorf("marker %q: negative frame offset %d", label, frameOffset)
	}
	key := filepath.Clean(name)
	p.mu.Lock()
	p.pending[key] = append(p.pending[key], audio.Marker{FrameOffset: frameOffset, Label: label})
	p.mu.Unlock()
	return nil
}

// CommitMetadata merges queued markers with the stream's existing markers and
// rewrites its metadata chunks.
func (p *Port) CommitMetadata(name string) error {
	key := filepath.Clean(name)
	p.mu.Lock()
	pending := p.pending[key]
	delete(p.pending, key)
	p.mu.Unlock()

	info, err := p.inspect(name)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	markers := append(append([]audio.Marker(nil), info.Markers...), pending...)
	if err := writeTail(file, info.DataOffset, info.DataSize, markers, info.trailing); err != nil {
		file.Close()
		return fmt.Errorf("commit metadata for %s: %w", filepath.Base(name), err)
	}
	return file.Close()
}

// Write stores pcm and markers as a complete WAV file at path.
func Write(path string, format audio.Format, pcm []byte, markers []audio.Marker) error {
	port, err := New(format)
	if err != nil {
		return err
	}
	w, err := port.OpenWrite(path, false)
	if err != nil {
		return err
	}
	width := format.FrameWidth()
	if err := w.WriteFrames(pcm, len(pcm)/width); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	for _, marker := range markers {
		if err := port.AddMarker(path, marker.FrameOffset, marker.Label); err != nil {
			return err
		}
	}
	return port.CommitMetadata(path)
}

type reader struct {
	file      *os.File
	width     int
	pos       int64
	remaining int64
}

func (r *reader) HasRemaining() bool {
	return r.remaining > 0
}

func (r *reader) ReadFrames(buf []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	usable := int64(len(buf) / r.width * r.width)
	if usable == 0 {
		return 0, audio.ErrShortBuffer
	}
	n := min(usable, r.remaining)
	read, err := r.file.ReadAt(buf[:n], r.pos)
	if int64(read) < n {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("read frames: %w", err)
	}
	r.pos += n
	r.remaining -= n
	return int(n) / r.width, nil
}

func (r *reader) Close() error {
	return r.file.Close()
}

type writer struct {
	file       *os.File
	width      int
	dataOffset int64
	dataSize   int64
	markers    []audio.Marker
	preserved  []rawChunk
	closed     bool
}

func (w *writer) WriteFrames(buf []byte, frames int) error {
	if w.closed {
		return os.ErrClosed
	}
	n := frames * w.width
	if frames < 0 || n > len(buf) {
		return fmt.Errorf("write frames: %d frames exceed buffer of %d bytes", frames, len(buf))
	}
	if _, err := w.file.WriteAt(buf[:n], w.dataOffset+w.dataSize); err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	w.dataSize += int64(n)
	return nil
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := writeTail(w.file, w.dataOffset, w.dataSize, w.markers, w.preserved); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// writeTail lays out everything after the payload and patches the size fields.
func writeTail(file *os.File, dataOffset, dataSize int64, markers []audio.Marker, preserved []rawChunk) error {
	end := dataOffset + dataSize
	if dataSize%2 == 1 {
		if _, err := file.WriteAt([]byte{0}, end); err != nil {
			return fmt.Errorf("write pad byte: %w", err)
		}
		end++
	}
	trailer := encodeTrailer(markers, preserved)
	if len(trailer) > 0 {
		if _, err := file.WriteAt(trailer, end); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}
	total := end + int64(len(trailer))
	if err := file.Truncate(total); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(dataSize))
	if _, err := file.WriteAt(size[:], dataOffset-4); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}
	binary.LittleEndian.PutUint32(size[:], uint32(total-8))
	if _, err := file.WriteAt(size[:], 4); err != nil {
		return fmt.Errorf("patch riff size: %w", err)
	}
	return file.Sync()
}
