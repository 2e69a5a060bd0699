// Package wavfile stores PCM streams as RIFF/WAVE files and implements
// audio.Port on top of them.
//
// Markers live in a "cue " chunk with one "labl" entry per cue inside a
// LIST/adtl chunk. The data chunk always precedes marker metadata so frames can
// be appended without rewriting the payload: writers truncate the trailing
// metadata, append PCM, and re-emit the metadata when they close.
package wavfile
