package segment_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/compile"
	"recorder2rc/internal/segment"
	"recorder2rc/internal/services"
	"recorder2rc/internal/testsupport"
)

func namerIn(dir string) segment.Namer {
	return func(label string) (string, error) {
		return filepath.Join(dir, "v"+label+".wav"), nil
	}
}

func TestSplitRoundTripsCompiledChapter(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "take1.wav")
	second := filepath.Join(dir, "take2.wav")
	payloadA := testsupport.WriteWAV(t, first, 1000, 2, audio.Marker{FrameOffset: 0, Label: "1"})
	payloadB := testsupport.WriteWAV(t, second, 1500, 7, audio.Marker{FrameOffset: 0, Label: "2"})

	port := testsupport.MustPort(t)
	chapter := filepath.Join(dir, "chapter.wav")
	if _, err := compile.New(port, 128, nil).Compile(context.Background(), []string{first, second}, chapter); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	outDir := filepath.Join(dir, "verses")
	segments, err := segment.New(port, 100, nil).Split(context.Background(), chapter, namerIn(outDir))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments", len(segments))
	}

	for i, want := range []struct {
		label   string
		frames  int64
		payload []byte
	}{
		{"1", 1000, payloadA},
		{"2", 1500, payloadB},
	} {
		seg := segments[i]
		if seg.Label != want.label || seg.Frames != want.frames {
			t.Fatalf("segment %d = %+v", i, seg)
		}
		if !bytes.Equal(testsupport.ReadPCM(t, port, seg.Path), want.payload) {
			t.Fatalf("segment %d payload differs from take", i)
		}
		markers, err := port.Markers(seg.Path)
		if err != nil {
			t.Fatalf("Markers: %v", err)
		}
		if len(markers) != 1 || markers[0] != (audio.Marker{FrameOffset: 0, Label: want.label}) {
			t.Fatalf("segment %d markers = %+v", i, markers)
		}
	}
}

func TestSplitIgnoresMarkerAtEndOfStream(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "chapter.wav")
	testsupport.WriteWAV(t, source, 2500, 3,
		audio.Marker{FrameOffset: 2500, Label: "end"},
		audio.Marker{FrameOffset: 1000, Label: "2"},
		audio.Marker{FrameOffset: 0, Label: "1"},
	)

	segments, err := segment.New(testsupport.MustPort(t), 0, nil).Split(context.Background(), source, namerIn(dir))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments: %+v", len(segments), segments)
	}
	if segments[0].Frames != 1000 || segments[1].Frames != 1500 {
		t.Fatalf("segment lengths = %d, %d", segments[0].Frames, segments[1].Frames)
	}
	if segments[1].End != 2500 {
		t.Fatalf("last segment end = %d", segments[1].End)
	}
}

func TestSplitDropsFramesBeforeFirstMarker(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "chapter.wav")
	payload := testsupport.WriteWAV(t, source, 300, 5, audio.Marker{FrameOffset: 100, Label: "1"})

	port := testsupport.MustPort(t)
	segments, err := segment.New(port, 0, nil).Split(context.Background(), source, namerIn(dir))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(segments) != 1 || segments[0].Start != 100 || segments[0].Frames != 200 {
		t.Fatalf("segments = %+v", segments)
	}
	width := testsupport.Mono16.FrameWidth()
	if !bytes.Equal(testsupport.ReadPCM(t, port, segments[0].Path), payload[100*width:]) {
		t.Fatal("segment payload mismatch")
	}
}

func TestSplitWithoutMarkersProducesNothing(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "chapter.wav")
	testsupport.WriteWAV(t, source, 50, 1)

	segments, err := segment.New(testsupport.MustPort(t), 0, nil).Split(context.Background(), source, namerIn(dir))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestSplitMissingSourceIsStreamIO(t *testing.T) {
	dir := t.TempDir()
	_, err := segment.New(testsupport.MustPort(t), 0, nil).Split(context.Background(), filepath.Join(dir, "nope.wav"), namerIn(dir))
	if !errors.Is(err, services.ErrStreamIO) {
		t.Fatalf("expected ErrStreamIO, got %v", err)
	}
}

func TestSplitStopsOnNamerError(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "chapter.wav")
	testsupport.WriteWAV(t, source, 100, 3,
		audio.Marker{FrameOffset: 0, Label: "1"},
		audio.Marker{FrameOffset: 50, Label: "2"},
	)

	refused := errors.New("refused")
	outDir := filepath.Join(dir, "verses")
	namer := func(label string) (string, error) {
		if label == "2" {
			return "", refused
		}
		return filepath.Join(outDir, "v"+label+".wav"), nil
	}
	segments, err := segment.New(testsupport.MustPort(t), 0, nil).Split(context.Background(), source, namer)
	if !errors.Is(err, refused) {
		t.Fatalf("expected namer error, got %v", err)
	}
	if len(segments) != 1 || segments[0].Label != "1" {
		t.Fatalf("segments = %+v", segments)
	}
	if _, statErr := os.Stat(filepath.Join(outDir, "v2.wav")); !os.IsNotExist(statErr) {
		t.Fatal("refused label must not be written")
	}
}
