// Package config loads, normalizes, and validates recorder2rc configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RECORDER2RC_LOG_LEVEL. The Config type centralizes every knob the converter
// and CLI need: working and log directories, the fixed PCM format of a run,
// versification overrides, and the metadata stamped into the resource
// container manifest.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
