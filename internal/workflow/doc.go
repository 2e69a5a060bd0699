// Package workflow converts a recorder project archive into a resource
// container archive.
//
// The Converter runs one project at a time. It extracts the archive into a
// per-run directory under paths.work_dir, reads the project manifest and take
// selection, and walks the chapters in ascending order: select takes, compile
// the chapter stream, split it into verse files for chunk projects, and decide
// from the versification table whether the chapter file is kept. The container
// manifest and selected take list are written last and the container is zipped
// next to the other outputs.
//
// Any stream, manifest, or lookup failure aborts the run. A chapter without an
// approved take is skipped. Each run is recorded in the history ledger when
// one is attached, and an advisory lock on the output directory keeps two
// conversions from writing the same container.
package workflow
