package pixfmt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"videotable/internal/logging"
	"videotable/internal/services"
	"videotable/internal/tensor"
)

// Record is the pixel layout a container actually holds.
type Record struct {
	Requested         string
	Actual            string
	Planar            bool
	ChannelOrder      string
	HasPaddingOrAlpha bool
	RowStrideBytes    int
}

// Negotiator requests layouts from an Engine and works out how to read back
// whatever the engine produced.
type Negotiator struct {
	engine Engine
	logger *slog.Logger
}

// NewNegotiator binds a negotiator to engine.
func NewNegotiator(engine Engine, logger *slog.Logger) *Negotiator {
	return &Negotiator{engine: engine, logger: logging.NewComponentLogger(logger, "pixfmt")}
}

// Encode streams a (T,H,W,3) tensor into a container at path and returns the
// negotiated record. codecParams must name the codec under "c:v".
func (n *Negotiator) Encode(ctx context.Context, pixels tensor.Pixels, codecParams map[string]string, path string) (Record, error) {
	codec := strings.TrimSpace(codecParams["c:v"])
	if codec == "" {
		return Record{}, services.Wrap(services.ErrValidation, "encode", "negotiate", "codec params must include c:v", nil)
	}
	if pixels.Shape.Channels() != 3 {
		return Record{}, services.Wrap(services.ErrValidation, "encode", "negotiate", fmt.Sprintf("frames need 3 channels, got %d", pixels.Shape.Channels()), nil)
	}
	request := RequestFor(codec, pixels.BitDepth)

	params := make(map[string]string, len(codecParams))
	for key, value := range codecParams {
		if key == "pix_fmt" {
			continue
		}
		params[key] = value
	}

	shape := pixels.Shape
	err := n.engine.Encode(ctx, EncodeRequest{
		Path:        path,
		Width:       shape.Width(),
		Height:      shape.Height(),
		Frames:      shape.Frames(),
		PixelFormat: request.Format,
		CodecParams: params,
		Data:        Interleave(pixels, request),
	})
	if err != nil {
		return Record{}, err
	}

	probe, err := n.probe(ctx, path, shape)
	if err != nil {
		return Record{}, err
	}
	actual := strings.ToLower(strings.TrimSpace(probe.PixelFormat))
	if actual != request.Format {
		if !IsFallback(codec, pixels.BitDepth, actual) {
			return Record{}, &UnsupportedPixelFormatError{Codec: codec, Requested: request.Format, Actual: actual}
		}
		logging.WarnWithContext(logging.WithContext(ctx, n.logger), "engine substituted pixel format", "pixel_format_substituted",
			logging.String("codec", codec),
			logging.String("requested", request.Format),
			logging.String("actual", actual),
			logging.String(logging.FieldImpact, substitutionImpact(codec, actual)),
		)
	}
	record := recordFor(request.Format, actual, shape.Width())
	return record, nil
}

// Decode reads a container back into a (T,H,W,3) tensor of bits-wide samples.
// The read path is chosen from a fresh probe, never from encode-time state.
func (n *Negotiator) Decode(ctx context.Context, path string, shape tensor.Shape, bits int) (tensor.Pixels, Record, error) {
	shape = shape.WithChannels(3)
	probe, err := n.probe(ctx, path, shape)
	if err != nil {
		return tensor.Pixels{}, Record{}, err
	}
	actual := strings.ToLower(strings.TrimSpace(probe.PixelFormat))

	if actual == BGR0 {
		if bits != 8 {
			return tensor.Pixels{}, Record{}, &UnsupportedPixelFormatError{Codec: probe.Codec, Actual: actual}
		}
		buf, err := n.engine.Decode(ctx, path, BGR0)
		if err != nil {
			return tensor.Pixels{}, Record{}, err
		}
		pixels, stride, err := decodeBGR0(buf, shape)
		if err != nil {
			return tensor.Pixels{}, Record{}, err
		}
		record := recordFor("", actual, shape.Width())
		record.RowStrideBytes = stride
		return pixels, record, nil
	}

	layout, direct := Describe(actual)
	if !direct || layout.BitDepth != bits {
		depth, ok := yuvFallbacks[actual]
		if !ok || depth != bits {
			return tensor.Pixels{}, Record{}, &UnsupportedPixelFormatError{Codec: probe.Codec, Actual: actual}
		}
		layout = packedFor(bits)
	}

	buf, err := n.engine.Decode(ctx, path, layout.Format)
	if err != nil {
		return tensor.Pixels{}, Record{}, err
	}
	pixels, err := Deinterleave(buf, layout, shape)
	if err != nil {
		return tensor.Pixels{}, Record{}, err
	}
	record := recordFor(layout.Format, actual, shape.Width())
	return pixels, record, nil
}

func (n *Negotiator) probe(ctx context.Context, path string, shape tensor.Shape) (Probe, error) {
	probe, err := n.engine.Probe(ctx, path)
	if err != nil {
		return Probe{}, err
	}
	if strings.TrimSpace(probe.PixelFormat) == "" {
		return Probe{}, services.Wrap(services.ErrExternalTool, "probe", "pixel format", fmt.Sprintf("no video stream pixel format reported for %s", path), nil)
	}
	if probe.Width != shape.Width() || probe.Height != shape.Height() {
		return Probe{}, services.Wrap(services.ErrValidation, "probe", "dimensions",
			fmt.Sprintf("container is %dx%d, expected %dx%d", probe.Width, probe.Height, shape.Width(), shape.Height()), nil)
	}
	return probe, nil
}

// recordFor describes the actual format; requested is the layout asked of
// the engine (empty when reading a fallback as-is).
func recordFor(requested, actual string, width int) Record {
	record := Record{Requested: requested, Actual: actual}
	layout, ok := Describe(actual)
	if !ok {
		// A converted YUV stream is read through the packed request.
		layout, ok = Describe(requested)
		if !ok {
			return record
		}
	}
	record.Planar = layout.Planar
	record.ChannelOrder = layout.ChannelOrder()
	record.HasPaddingOrAlpha = layout.HasPadding()
	record.RowStrideBytes = layout.RowStride(width)
	return record
}

func substitutionImpact(codec, actual string) string {
	if IsCertified(codec) {
		return fmt.Sprintf("decode reads %s through the padded fallback path; exact round trip is no longer guaranteed by layout", actual)
	}
	return fmt.Sprintf("decode converts %s back to packed rgb; values are shape-preserving only", actual)
}
