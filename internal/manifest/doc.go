// Package manifest persists the conversion ledger that accompanies every
// encoded container.
//
// A Manifest records everything a decoder needs besides the pixels: the
// original tensor shape, the value range and bit depth used for
// quantization, the serialized reduction model, and both the requested and
// actual pixel formats. It is stored either as a JSON sidecar next to the
// container (with an xxhash64 checksum of the container) or embedded as a
// single string tag inside the container metadata.
package manifest
