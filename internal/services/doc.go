// Package services defines shared utilities consumed by the conversion pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, array names, stages, and run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and the conversion error
//     taxonomy (invalid range, unsupported pixel format, buffer size mismatch,
//     missing manifest, column count mismatch) that typed errors unwrap to.
//
// Use these helpers when wiring new pipeline steps so failures classify the
// same way everywhere.
package services
