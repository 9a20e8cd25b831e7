// Package pipeline sequences the conversion of named arrays between a table
// file and video containers.
//
// EncodeBatch reads a table once and, for each Job in order, selects its
// columns, reshapes them to (T,H,W,C), fills NaN samples, optionally reduces
// the channel count, quantizes, pads to three channels, hands the frames to
// the pixel-format negotiator, and persists a manifest. Every job works
// inside its own <batch>/<name>/ directory under an advisory file lock and is
// recorded in the batch catalog; the on_error policy decides whether a failed
// job aborts the batch.
//
// DecodeOne runs the mirror sequence for one array, starting from the
// manifest, and writes reconstructed_<name>.db next to the container.
package pipeline
