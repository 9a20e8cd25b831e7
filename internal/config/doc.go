// Package config loads, normalizes, and validates videotable configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDEOTABLE_FFMPEG. The Config type replaces process-wide codec defaults with
// one explicit struct handed to the pipeline, so every knob that changes how
// arrays are encoded is enumerated in one place.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policies, and clear validation errors.
package config
