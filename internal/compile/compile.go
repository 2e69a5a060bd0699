package compile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/logging"
	"recorder2rc/internal/services"
)

const stageName = "compile"

// DefaultBufferFrames is used when the configured buffer is not positive.
const DefaultBufferFrames = 5120

// Result describes a compiled chapter stream.
type Result struct {
	Path    string
	Frames  int64
	Markers []audio.Marker
}

// Compiler builds chapter streams from ordered takes.
type Compiler struct {
	port         audio.Port
	bufferFrames int
	logger       *slog.Logger
}

// New constructs a compiler on top of port.
func New(port audio.Port, bufferFrames int, logger *slog.Logger) *Compiler {
	if bufferFrames <= 0 {
		bufferFrames = DefaultBufferFrames
	}
	return &Compiler{
		port:         port,
		bufferFrames: bufferFrames,
		logger:       logging.NewComponentLogger(logger, stageName),
	}
}

// Compile writes the concatenation of sources to output and merges their
// markers. An existing output is replaced, not appended to. An empty source
// list produces a valid stream with no frames and no markers. Any port failure
// is reported as services.ErrStreamIO.
func (c *Compiler) Compile(ctx context.Context, sources []string, output string) (Result, error) {
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	frames, err := c.copyFrames(sources, output)
	if err != nil {
		return Result{}, err
	}

	markers, err := c.mergeMarkers(sources, output)
	if err != nil {
		return Result{}, err
	}

	logger.Debug("chapter stream compiled",
		logging.String("output", output),
		logging.Int("takes", len(sources)),
		logging.Int64("frames", frames),
		logging.Int("markers", len(markers)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{Path: output, Frames: frames, Markers: markers}, nil
}

func (c *Compiler) copyFrames(sources []string, output string) (int64, error) {
	writer, err := c.port.OpenWrite(output, false)
	if err != nil {
		return 0, services.Wrap(services.ErrStreamIO, stageName, "open output", output, err)
	}

	buf := audio.NewBuffer(c.port.Format(), c.bufferFrames)
	width := c.port.Format().FrameWidth()
	var total int64
	for _, source := range sources {
		n, err := c.copyOne(writer, source, buf, width)
		if err != nil {
			_ = writer.Close()
			return total, err
		}
		total += n
	}
	if err := writer.Close(); err != nil {
		return total, services.Wrap(services.ErrStreamIO, stageName, "close output", output, err)
	}
	return total, nil
}

func (c *Compiler) copyOne(writer audio.FrameWriter, source string, buf []byte, width int) (int64, error) {
	reader, err := c.port.OpenRead(source)
	if err != nil {
		return 0, services.Wrap(services.ErrStreamIO, stageName, "open take", source, err)
	}
	defer reader.Close()

	n, err := audio.CopyFrames(writer, reader, buf, width)
	if err != nil {
		return n, services.Wrap(services.ErrStreamIO, stageName, "copy take", source, err)
	}
	return n, nil
}

func (c *Compiler) mergeMarkers(sources []string, output string) ([]audio.Marker, error) {
	var (
		counter int64
		merged  []audio.Marker
	)
	for _, source := range sources {
		markers, err := c.port.Markers(source)
		if err != nil {
			return nil, services.Wrap(services.ErrStreamIO, stageName, "read markers", source, err)
		}
		for _, marker := range markers {
			rebased := audio.Marker{FrameOffset: counter + marker.FrameOffset, Label: marker.Label}
			if err := c.port.AddMarker(output, rebased.FrameOffset, rebased.Label); err != nil {
				return nil, services.Wrap(services.ErrStreamIO, stageName, "add marker", fmt.Sprintf("%s at %d", output, rebased.FrameOffset), err)
			}
			merged = append(merged, rebased)
		}
		frames, err := c.port.FrameCount(source)
		if err != nil {
			return nil, services.Wrap(services.ErrStreamIO, stageName, "frame count", source, err)
		}
		counter += frames
	}
	if err := c.port.CommitMetadata(output); err != nil {
		return nil, services.Wrap(services.ErrStreamIO, stageName, "commit markers", output, err)
	}
	return merged, nil
}
