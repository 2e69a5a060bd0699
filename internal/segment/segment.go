// Package segment splits a marked chapter stream into one stream per marker.
package segment

import (
	"context"
	"fmt"
	"log/slog"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/logging"
	"recorder2rc/internal/services"
)

const stageName = "segment"

// Segment is one produced stream. It covers frames [Start, End) of the source
// and carries a single marker at offset 0 with Label.
type Segment struct {
	Label  string
	Path   string
	Start  int64
	End    int64
	Frames int64
}

// Namer maps a marker label to the path of the stream it will be written to.
// An error stops the split before anything is written for that label.
type Namer func(label string) (string, error)

// Segmenter cuts streams at their markers.
type Segmenter struct {
	port         audio.Port
	bufferFrames int
	logger       *slog.Logger
}

// New constructs a Segmenter on top of port.
func New(port audio.Port, bufferFrames int, logger *slog.Logger) *Segmenter {
	if bufferFrames <= 0 {
		bufferFrames = 5120
	}
	return &Segmenter{
		port:         port,
		bufferFrames: bufferFrames,
		logger:       logging.NewComponentLogger(logger, stageName),
	}
}

// Split writes one stream per marker of source. Segment i runs from marker i
// to marker i+1 and the last segment runs to the end of the source. Frames
// before the first marker are not emitted. A marker at or past the end of the
// stream closes the previous segment and produces none of its own.
func (s *Segmenter) Split(ctx context.Context, source string, namer Namer) ([]Segment, error) {
	if namer == nil {
		return nil, fmt.Errorf("split %s: nil namer", source)
	}
	logger := logging.WithContext(ctx, s.logger)

	markers, err := s.port.Markers(source)
	if err != nil {
		return nil, services.Wrap(services.ErrStreamIO, stageName, "read markers", source, err)
	}
	total, err := s.port.FrameCount(source)
	if err != nil {
		return nil, services.Wrap(services.ErrStreamIO, stageName, "frame count", source, err)
	}

	sorted := audio.SortMarkers(markers)
	segments := make([]Segment, 0, len(sorted))
	buf := audio.NewBuffer(s.port.Format(), s.bufferFrames)
	for i, marker := range sorted {
		start := marker.FrameOffset
		if start >= total {
			logger.Debug("marker at end of stream produces no segment",
				logging.String("label", marker.Label),
				logging.Int64("offset", start),
				logging.Int64("frames", total),
			)
			continue
		}
		end := total
		if i+1 < len(sorted) {
			end = min(sorted[i+1].FrameOffset, total)
		}
		target, err := namer(marker.Label)
		if err != nil {
			return segments, err
		}
		segment := Segment{Label: marker.Label, Path: target, Start: start, End: end}
		frames, err := s.writeSegment(source, segment, buf)
		if err != nil {
			return segments, err
		}
		segment.Frames = frames
		segments = append(segments, segment)
	}

	logger.Debug("stream split",
		logging.String("source", source),
		logging.Int("markers", len(sorted)),
		logging.Int("segments", len(segments)),
	)
	return segments, nil
}

func (s *Segmenter) writeSegment(source string, segment Segment, buf []byte) (int64, error) {
	reader, err := s.port.OpenReadRange(source, segment.Start, segment.End)
	if err != nil {
		return 0, services.Wrap(services.ErrStreamIO, stageName, "open range", source, err)
	}
	defer reader.Close()

	writer, err := s.port.OpenWrite(segment.Path, false)
	if err != nil {
		return 0, services.Wrap(services.ErrStreamIO, stageName, "open segment", segment.Path, err)
	}
	frames, err := audio.CopyFrames(writer, reader, buf, s.port.Format().FrameWidth())
	if err != nil {
		_ = writer.Close()
		return frames, services.Wrap(services.ErrStreamIO, stageName, "copy segment", segment.Path, err)
	}
	if err := writer.Close(); err != nil {
		return frames, services.Wrap(services.ErrStreamIO, stageName, "close segment", segment.Path, err)
	}
	if err := s.port.AddMarker(segment.Path, 0, segment.Label); err != nil {
		return frames, services.Wrap(services.ErrStreamIO, stageName, "add marker", segment.Path, err)
	}
	if err := s.port.CommitMetadata(segment.Path); err != nil {
		return frames, services.Wrap(services.ErrStreamIO, stageName, "commit marker", segment.Path, err)
	}
	return frames, nil
}
