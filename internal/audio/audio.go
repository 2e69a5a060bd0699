package audio

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"recorder2rc/internal/config"
)

// Marker is a labelled frame offset inside a stream.
type Marker struct {
	FrameOffset int64
	Label       string
}

// SortMarkers returns a copy of markers ordered by frame offset. Markers that
// share an offset keep their relative order.
func SortMarkers(markers []Marker) []Marker {
	sorted := append([]Marker(nil), markers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FrameOffset < sorted[j].FrameOffset
	})
	return sorted
}

// Format is the PCM layout every stream in a run shares.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// FormatFromConfig builds the run format from the [audio] config section.
func FormatFromConfig(cfg config.Audio) Format {
	return Format{
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		BitsPerSample: cfg.BitsPerSample,
	}
}

// FrameWidth returns the number of bytes in one frame.
func (f Format) FrameWidth() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%d ch/%d bit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// Validate reports whether the format describes usable integer PCM.
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("invalid pcm format %s", f)
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("invalid pcm format %s: unsupported bit depth", f)
	}
	return nil
}

// FrameReader yields whole frames from a stream.
type FrameReader interface {
	HasRemaining() bool
	// ReadFrames fills buf with as many whole frames as fit and returns the
	// frame count. It returns io.EOF once the stream is exhausted.
	ReadFrames(buf []byte) (int, error)
	Close() error
}

// FrameWriter appends whole frames to a stream.
type FrameWriter interface {
	WriteFrames(buf []byte, frames int) error
	Close() error
}

// Port opens PCM streams by name. Markers added with AddMarker are pending
// until CommitMetadata is called for the same stream.
type Port interface {
	Format() Format
	OpenRead(name string) (FrameReader, error)
	// OpenReadRange reads frames [start, end). A negative end reads to the end of the stream.
	OpenReadRange(name string, start, end int64) (FrameReader, error)
	OpenWrite(name string, append bool) (FrameWriter, error)
	Markers(name string) ([]Marker, error)
	FrameCount(name string) (int64, error)
	AddMarker(name string, frameOffset int64, label string) error
	CommitMetadata(name string) error
}

// ErrShortBuffer is returned when a transfer buffer cannot hold one frame.
var ErrShortBuffer = errors.New("transfer buffer smaller than one frame")

// NewBuffer allocates a transfer buffer holding frames frames of format.
func NewBuffer(format Format, frames int) []byte {
	if frames <= 0 {
		frames = 1
	}
	return make([]byte, frames*format.FrameWidth())
}

// CopyFrames drains src into dst through buf and returns the number of frames
// copied. Memory use is bounded by len(buf).
func CopyFrames(dst FrameWriter, src FrameReader, buf []byte, frameWidth int) (int64, error) {
	if frameWidth <= 0 || len(buf) < frameWidth {
		return 0, ErrShortBuffer
	}
	var total int64
	for src.HasRemaining() {
		n, err := src.ReadFrames(buf)
		if n > 0 {
			if werr := dst.WriteFrames(buf[:n*frameWidth], n); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrNoProgress
		}
	}
	return total, nil
}
