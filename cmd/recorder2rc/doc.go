// Package main hosts the recorder2rc CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and logging once, then hands
// off to the workflow package for conversions and to the history store for
// run inspection. Keep this package thin: behavior belongs in internal
// packages, commands only translate flags and render results.
package main
