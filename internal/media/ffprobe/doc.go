// Package ffprobe wraps the ffprobe CLI to inspect encoded containers.
//
// Inspect runs ffprobe with JSON output and decodes the streams and format
// sections into typed structs. Helpers expose the negotiated pixel format,
// frame dimensions, and custom metadata tags the codec engine needs when it
// reports what a container actually holds.
package ffprobe
