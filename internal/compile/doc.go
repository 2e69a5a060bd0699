// Package compile concatenates the selected takes of a chapter into a single
// chapter stream.
//
// Compilation runs in two passes over the same source list. The first pass
// copies PCM frames through a fixed transfer buffer. The second pass reads the
// markers of every source, shifts them by the number of frames that precede
// the source in the output, and commits the merged list once. Marker data is
// always read from the sources, never from the output being assembled.
package compile
