package wavfile_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/wavfile"
)

var mono16 = audio.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}

func pcm(frames int, seed byte) []byte {
	data := make([]byte, frames*2)
	for i := range data {
		data[i] = seed + byte(i%97)
	}
	return data
}

func readAll(t *testing.T, r audio.FrameReader) []byte {
	t.Helper()
	defer r.Close()
	var out bytes.Buffer
	buf := make([]byte, 2*37)
	for r.HasRemaining() {
		n, err := r.ReadFrames(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("ReadFrames: %v", err)
		}
		out.Write(buf[:n*2])
	}
	return out.Bytes()
}

func TestWriteAndInspectRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	payload := pcm(500, 3)
	markers := []audio.Marker{{FrameOffset: 250, Label: "2"}, {FrameOffset: 0, Label: "1"}}
	if err := wavfile.Write(path, mono16, payload, markers); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := wavfile.Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Format != mono16 {
		t.Fatalf("format = %v", info.Format)
	}
	if info.Frames() != 500 {
		t.Fatalf("frames = %d", info.Frames())
	}
	if len(info.Markers) != 2 || info.Markers[0] != (audio.Marker{FrameOffset: 0, Label: "1"}) || info.Markers[1] != (audio.Marker{FrameOffset: 250, Label: "2"}) {
		t.Fatalf("markers = %#v", info.Markers)
	}

	port, err := wavfile.New(mono16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r, err := port.OpenRead(path)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	if got := readAll(t, r); !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch")
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if int64(binary.LittleEndian.Uint32(raw[4:8])) != stat.Size()-8 {
		t.Fatalf("riff size not patched")
	}
}

func TestAppendKeepsFramesAndMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapter.wav")
	first := pcm(100, 1)
	if err := wavfile.Write(path, mono16, first, []audio.Marker{{FrameOffset: 0, Label: "1"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	port, _ := wavfile.New(mono16)

	w, err := port.OpenWrite(path, true)
	if err != nil {
		t.Fatalf("OpenWrite append: %v", err)
	}
	second := pcm(60, 9)
	if err := w.WriteFrames(second, 60); err != nil {
		t.Fatalf("WriteFrames: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := port.AddMarker(path, 100, "2"); err != nil {
		t.Fatalf("AddMarker: %v", err)
	}
	if err := port.CommitMetadata(path); err != nil {
		t.Fatalf("CommitMetadata: %v", err)
	}

	frames, err := port.FrameCount(path)
	if err != nil || frames != 160 {
		t.Fatalf("FrameCount = %d, %v", frames, err)
	}
	markers, err := port.Markers(path)
	if err != nil {
		t.Fatalf("Markers: %v", err)
	}
	if len(markers) != 2 || markers[1].FrameOffset != 100 || markers[1].Label != "2" {
		t.Fatalf("markers = %#v", markers)
	}
	r, _ := port.OpenRead(path)
	if got := readAll(t, r); !bytes.Equal(got, append(append([]byte(nil), first...), second...)) {
		t.Fatal("appended payload mismatch")
	}
}

func TestOpenWriteAppendCreatesMissingStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "empty.wav")
	port, _ := wavfile.New(mono16)
	w, err := port.OpenWrite(path, true)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := port.CommitMetadata(path); err != nil {
		t.Fatalf("CommitMetadata: %v", err)
	}
	frames, err := port.FrameCount(path)
	if err != nil || frames != 0 {
		t.Fatalf("FrameCount = %d, %v", frames, err)
	}
	markers, _ := port.Markers(path)
	if len(markers) != 0 {
		t.Fatalf("expected no markers, got %#v", markers)
	}
}

func TestOpenReadRangeClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	payload := pcm(300, 5)
	if err := wavfile.Write(path, mono16, payload, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	port, _ := wavfile.New(mono16)

	r, err := port.OpenReadRange(path, 100, 200)
	if err != nil {
		t.Fatalf("OpenReadRange: %v", err)
	}
	if got := readAll(t, r); !bytes.Equal(got, payload[200:400]) {
		t.Fatal("range payload mismatch")
	}

	r, err = port.OpenReadRange(path, 250, -1)
	if err != nil {
		t.Fatalf("OpenReadRange to EOF: %v", err)
	}
	if got := readAll(t, r); !bytes.Equal(got, payload[500:]) {
		t.Fatal("tail payload mismatch")
	}

	r, err = port.OpenReadRange(path, 400, 900)
	if err != nil {
		t.Fatalf("OpenReadRange past end: %v", err)
	}
	if r.HasRemaining() {
		t.Fatal("expected empty range past end of stream")
	}
	r.Close()
}

func TestFormatMismatchIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	stereo := audio.Format{SampleRate: 48000, Channels: 2, BitsPerSample: 16}
	if err := wavfile.Write(path, stereo, make([]byte, 40), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	port, _ := wavfile.New(mono16)
	if _, err := port.OpenRead(path); !errors.Is(err, wavfile.ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestInspectRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := wavfile.Inspect(path); !errors.Is(err, wavfile.ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestUnknownTrailingChunkSurvivesAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.wav")
	if err := wavfile.Write(path, mono16, pcm(10, 0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	extra := []byte("iXML\x03\x00\x00\x00abc\x00")
	raw = append(raw, extra...)
	binary.LittleEndian.PutUint32(raw[4:8], uint32(len(raw)-8))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	port, _ := wavfile.New(mono16)
	w, err := port.OpenWrite(path, true)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if err := w.WriteFrames(pcm(5, 1), 5); err != nil {
		t.Fatalf("WriteFrames: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	updated, _ := os.ReadFile(path)
	if !bytes.Contains(updated, []byte("iXML")) {
		t.Fatal("unknown chunk dropped on append")
	}
	if frames, _ := port.FrameCount(path); frames != 15 {
		t.Fatalf("frames = %d", frames)
	}
}

func TestOddDataIsPadded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u8.wav")
	format := audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}
	if err := wavfile.Write(path, format, []byte{1, 2, 3}, []audio.Marker{{FrameOffset: 1, Label: "v1"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := wavfile.Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Frames() != 3 {
		t.Fatalf("frames = %d", info.Frames())
	}
	if len(info.Markers) != 1 || info.Markers[0].Label != "v1" {
		t.Fatalf("markers = %#v", info.Markers)
	}
}
