// Package audio defines the PCM stream contract shared by the conversion
// pipeline: frame readers and writers, labelled frame markers, and the fixed
// sample format of a run. Concrete containers (see internal/wavfile) implement
// Port; pipeline stages only ever talk to the interface.
package audio
