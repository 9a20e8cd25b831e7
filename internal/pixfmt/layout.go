package pixfmt

import (
	"encoding/binary"
	"strings"

	"videotable/internal/tensor"
)

// CertifiedCodec is the one codec whose planar layout round-trips exactly.
const CertifiedCodec = "ffv1"

// Pixel formats the negotiator reads and writes directly.
const (
	GBRP    = "gbrp"
	GBRP16  = "gbrp16le"
	RGB24   = "rgb24"
	RGB48   = "rgb48le"
	BGR0    = "bgr0"
	padSlot = -1
)

// Layout describes how one pixel format lays samples out in a raw frame.
type Layout struct {
	Format   string
	Planar   bool
	BitDepth int
	// Slots maps each stored position (a plane when planar, a byte group
	// within a pixel when packed) to the logical channel it carries, or -1 for
	// padding.
	Slots []int
}

var layouts = map[string]Layout{
	GBRP:   {Format: GBRP, Planar: true, BitDepth: 8, Slots: []int{1, 2, 0}},
	GBRP16: {Format: GBRP16, Planar: true, BitDepth: 16, Slots: []int{1, 2, 0}},
	RGB24:  {Format: RGB24, BitDepth: 8, Slots: []int{0, 1, 2}},
	RGB48:  {Format: RGB48, BitDepth: 16, Slots: []int{0, 1, 2}},
	BGR0:   {Format: BGR0, BitDepth: 8, Slots: []int{2, 1, 0, padSlot}},
}

// yuvFallbacks are formats a non-certified codec may substitute. The engine
// converts them back to the packed request on decode; only shape survives.
var yuvFallbacks = map[string]int{
	"yuv420p":     8,
	"yuv422p":     8,
	"yuv444p":     8,
	"nv12":        8,
	"yuv420p10le": 16,
	"yuv422p10le": 16,
	"yuv444p10le": 16,
}

// Describe returns the layout of a directly readable format.
func Describe(format string) (Layout, bool) {
	layout, ok := layouts[strings.ToLower(strings.TrimSpace(format))]
	return layout, ok
}

// IsCertified reports whether codec carries the exact round-trip guarantee.
func IsCertified(codec string) bool {
	return strings.EqualFold(strings.TrimSpace(codec), CertifiedCodec)
}

// RequestFor returns the layout requested from the engine for codec at bits:
// planar gbrp for the certified codec, packed rgb otherwise.
func RequestFor(codec string, bits int) Layout {
	if IsCertified(codec) {
		if bits > 8 {
			return layouts[GBRP16]
		}
		return layouts[GBRP]
	}
	return packedFor(bits)
}

func packedFor(bits int) Layout {
	if bits > 8 {
		return layouts[RGB48]
	}
	return layouts[RGB24]
}

// IsFallback reports whether actual is an accepted substitute for the format
// requested from codec at bits.
func IsFallback(codec string, bits int, actual string) bool {
	actual = strings.ToLower(strings.TrimSpace(actual))
	if actual == BGR0 {
		return bits == 8
	}
	if IsCertified(codec) {
		return false
	}
	if depth, ok := yuvFallbacks[actual]; ok {
		return depth == bits
	}
	if layout, ok := layouts[actual]; ok {
		return layout.BitDepth == bits
	}
	return false
}

// SamplesPerPixel counts stored positions including padding.
func (l Layout) SamplesPerPixel() int { return len(l.Slots) }

// BytesPerSample is 1 for 8-bit formats and 2 for 16-bit ones.
func (l Layout) BytesPerSample() int { return tensor.BytesPerSample(l.BitDepth) }

// HasPadding reports whether any slot carries padding or alpha.
func (l Layout) HasPadding() bool {
	for _, slot := range l.Slots {
		if slot == padSlot {
			return true
		}
	}
	return false
}

// ChannelOrder names the stored channel order, e.g. "gbr" or "bgr".
func (l Layout) ChannelOrder() string {
	names := [3]byte{'r', 'g', 'b'}
	var b strings.Builder
	for _, slot := range l.Slots {
		if slot >= 0 {
			b.WriteByte(names[slot])
		}
	}
	return b.String()
}

// RowStride is the unpadded byte length of one row (of one plane when planar).
func (l Layout) RowStride(width int) int {
	if l.Planar {
		return width * l.BytesPerSample()
	}
	return width * l.SamplesPerPixel() * l.BytesPerSample()
}

// FrameBytes is the byte size of shape's frames in this layout.
func (l Layout) FrameBytes(shape tensor.Shape) int {
	return shape.Pixels() * l.SamplesPerPixel() * l.BytesPerSample()
}

// Interleave transposes a (T,H,W,3) tensor into the layout's raw byte order.
// 16-bit samples are written little-endian.
func Interleave(p tensor.Pixels, l Layout) []byte {
	shape := p.Shape
	bps := l.BytesPerSample()
	slots := l.SamplesPerPixel()
	out := make([]byte, l.FrameBytes(shape))
	framePixels := shape.Height() * shape.Width()
	for t := 0; t < shape.Frames(); t++ {
		for i := 0; i < framePixels; i++ {
			px := t*framePixels + i
			for s, channel := range l.Slots {
				var offset int
				if l.Planar {
					offset = ((t*slots+s)*framePixels + i) * bps
				} else {
					offset = (px*slots + s) * bps
				}
				var v uint16
				if channel != padSlot {
					v = p.At(px, channel)
				}
				putSample(out[offset:], v, bps)
			}
		}
	}
	return out
}

// Deinterleave reverses Interleave for a buffer in layout l holding shape's
// frames (the channel axis of shape is ignored; the result has 3 channels).
func Deinterleave(buf []byte, l Layout, shape tensor.Shape) (tensor.Pixels, error) {
	shape = shape.WithChannels(3)
	expected := l.FrameBytes(shape)
	if len(buf) != expected {
		return tensor.Pixels{}, &BufferSizeMismatchError{Format: l.Format, Observed: len(buf), Considered: []int{expected}}
	}
	return unpack(buf, l, shape, l.RowStride(shape.Width())), nil
}

// unpack reads packed or planar samples; rowStride may exceed the natural
// packed row length when rows carry alignment padding.
func unpack(buf []byte, l Layout, shape tensor.Shape, rowStride int) tensor.Pixels {
	out := tensor.NewPixels(shape.WithChannels(3), l.BitDepth)
	bps := l.BytesPerSample()
	slots := l.SamplesPerPixel()
	width := shape.Width()
	framePixels := shape.Height() * width
	for t := 0; t < shape.Frames(); t++ {
		for y := 0; y < shape.Height(); y++ {
			for x := 0; x < width; x++ {
				px := t*framePixels + y*width + x
				for s, channel := range l.Slots {
					if channel == padSlot {
						continue
					}
					var offset int
					if l.Planar {
						offset = ((t*slots+s)*framePixels + y*width + x) * bps
					} else {
						offset = (t*shape.Height()+y)*rowStride + (x*slots+s)*bps
					}
					out.Set(px, channel, getSample(buf[offset:], bps))
				}
			}
		}
	}
	return out
}

func putSample(dst []byte, v uint16, bps int) {
	if bps == 2 {
		binary.LittleEndian.PutUint16(dst, v)
		return
	}
	dst[0] = byte(v)
}

func getSample(src []byte, bps int) uint16 {
	if bps == 2 {
		return binary.LittleEndian.Uint16(src)
	}
	return uint16(src[0])
}
