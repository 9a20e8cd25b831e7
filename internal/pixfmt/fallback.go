package pixfmt

import (
	"videotable/internal/tensor"
)

// strideAlignment is the row alignment some engine builds apply to packed
// bgr0 output.
const strideAlignment = 16

// DecodeFallback recovers a (T,H,W,3) tensor from a raw bgr0 buffer. It tries,
// in order: an exact T*H*W*4 buffer; rows padded to a 16-byte aligned stride
// of width*4; a packed 3-channel buffer. Each path drops the padding byte and
// reverses the channel order. Any other size fails with BufferSizeMismatchError.
func DecodeFallback(buf []byte, shape tensor.Shape) (tensor.Pixels, error) {
	pixels, _, err := decodeBGR0(buf, shape)
	return pixels, err
}

func decodeBGR0(buf []byte, shape tensor.Shape) (tensor.Pixels, int, error) {
	shape = shape.WithChannels(3)
	rows := shape.Frames() * shape.Height()
	natural := shape.Width() * 4
	aligned := alignUp(natural, strideAlignment)

	exact := shape.Pixels() * 4
	strided := rows * aligned
	packed := shape.Pixels() * 3

	bgr0 := layouts[BGR0]
	switch len(buf) {
	case exact:
		return unpack(buf, bgr0, shape, natural), natural, nil
	case strided:
		return unpack(buf, bgr0, shape, aligned), aligned, nil
	case packed:
		bgr := Layout{Format: "bgr24", BitDepth: 8, Slots: []int{2, 1, 0}}
		return unpack(buf, bgr, shape, shape.Width()*3), shape.Width() * 3, nil
	}
	return tensor.Pixels{}, 0, &BufferSizeMismatchError{
		Format:     BGR0,
		Observed:   len(buf),
		Considered: []int{exact, strided, packed},
	}
}

func alignUp(n, alignment int) int {
	return (n + alignment - 1) / alignment * alignment
}
