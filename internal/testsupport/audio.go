package testsupport

import (
	"testing"

	"recorder2rc/internal/audio"
	"recorder2rc/internal/wavfile"
)

// Mono16 is the default run format: 44.1 kHz, mono, 16 bit.
var Mono16 = audio.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}

// PCM returns frames frames of deterministic 16-bit mono sample data.
// Different seeds produce different payloads.
func PCM(frames int, seed byte) []byte {
	data := make([]byte, frames*Mono16.FrameWidth())
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data
}

// WriteWAV stores a Mono16 take at path and returns its payload.
func WriteWAV(t testing.TB, path string, frames int, seed byte, markers ...audio.Marker) []byte {
	t.Helper()

	payload := PCM(frames, seed)
	WriteWAVData(t, path, payload, markers...)
	return payload
}

// WriteWAVData stores payload as a Mono16 WAV file at path.
func WriteWAVData(t testing.TB, path string, payload []byte, markers ...audio.Marker) {
	t.Helper()

	if err := wavfile.Write(path, Mono16, payload, markers); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// MustPort returns a wavfile port for Mono16.
func MustPort(t testing.TB) *wavfile.Port {
	t.Helper()

	port, err := wavfile.New(Mono16)
	if err != nil {
		t.Fatalf("wavfile.New: %v", err)
	}
	return port
}

// ReadPCM returns the full payload of the stream at path.
func ReadPCM(t testing.TB, port audio.Port, path string) []byte {
	t.Helper()

	reader, err := port.OpenRead(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer reader.Close()

	var out []byte
	buf := audio.NewBuffer(port.Format(), 512)
	width := port.Format().FrameWidth()
	for reader.HasRemaining() {
		n, err := reader.ReadFrames(buf)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		out = append(out, buf[:n*width]...)
	}
	return out
}
