// Package services defines shared utilities consumed by the conversion stages.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, chapter numbers, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent history statuses (failed vs rejected).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
