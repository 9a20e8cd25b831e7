package pixfmt

import "context"

// EncodeRequest describes one raw-frame encode.
type EncodeRequest struct {
	Path   string
	Width  int
	Height int
	Frames int
	// PixelFormat is both the raw input layout and the requested output format.
	PixelFormat string
	// CodecParams are ffmpeg output options keyed without the leading dash
	// ("c:v", "preset", ...).
	CodecParams map[string]string
	Data        []byte
}

// Probe is what the engine reports about a finished container.
type Probe struct {
	Codec       string
	Width       int
	Height      int
	Frames      int
	PixelFormat string
	Tags        map[string]string
}

// Engine is the external codec engine. Implementations may substitute a
// different pixel format than requested; callers must Probe to find out.
type Engine interface {
	Encode(ctx context.Context, req EncodeRequest) error
	Decode(ctx context.Context, path string, pixelFormat string) ([]byte, error)
	Probe(ctx context.Context, path string) (Probe, error)
	Retag(ctx context.Context, path string, tags map[string]string) error
}
