// Package manifest reads the recorder project description: manifest.json,
// which lists chapters, chunks and their takes, and selected.json, the set of
// take file names the translator approved.
package manifest
