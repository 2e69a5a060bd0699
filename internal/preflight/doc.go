// Package preflight provides readiness checks for the inputs and paths a
// conversion depends on.
//
// These checks run in two contexts:
//   - The converter calls RunAll before extracting a project. If any check
//     fails, the run is rejected before anything is written.
//   - The CLI "recorder2rc check" command prints every result.
//
// The source catalog check only runs when paths.source_dir is configured.
package preflight
