package tensor

import (
	"fmt"
	"strings"
)

// Kind is the numeric domain of a tensor's source data.
type Kind int

const (
	Float Kind = iota
	Int
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	default:
		return "float"
	}
}

// ParseKind accepts "float" or "int" (case-insensitive).
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "float":
		return Float, nil
	case "int":
		return Int, nil
	default:
		return Float, fmt.Errorf("unknown tensor kind %q", value)
	}
}

// Shape is a (frames, height, width, channels) tuple.
type Shape [4]int

func (s Shape) Frames() int   { return s[0] }
func (s Shape) Height() int   { return s[1] }
func (s Shape) Width() int    { return s[2] }
func (s Shape) Channels() int { return s[3] }

// Pixels returns the number of (t, y, x) positions, i.e. the row count of the
// leading-axis-flattened matrix.
func (s Shape) Pixels() int { return s[0] * s[1] * s[2] }

// FrameSize returns H*W*C, the element count of one frame.
func (s Shape) FrameSize() int { return s[1] * s[2] * s[3] }

// Size returns the total element count.
func (s Shape) Size() int { return s[0] * s[1] * s[2] * s[3] }

// WithChannels returns a copy of s with the channel axis replaced.
func (s Shape) WithChannels(c int) Shape {
	s[3] = c
	return s
}

// Validate requires every axis to be at least 1.
func (s Shape) Validate() error {
	for i, n := range s {
		if n < 1 {
			return fmt.Errorf("shape %v: axis %d must be >= 1", s.Slice(), i)
		}
	}
	return nil
}

// Slice returns the shape as a plain int slice.
func (s Shape) Slice() []int {
	return []int{s[0], s[1], s[2], s[3]}
}

// ShapeFromSlice converts a 4-element slice into a Shape.
func ShapeFromSlice(values []int) (Shape, error) {
	if len(values) != 4 {
		return Shape{}, fmt.Errorf("shape must have 4 axes (T,H,W,C), got %d", len(values))
	}
	return Shape{values[0], values[1], values[2], values[3]}, nil
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", s[0], s[1], s[2], s[3])
}

// Dense is a row-major (T,H,W,C) tensor of float64 samples. Integer sources
// keep integral values in Data and set Kind to Int.
type Dense struct {
	Shape Shape
	Data  []float64
	Kind  Kind
}

// NewDense allocates a zero tensor.
func NewDense(shape Shape, kind Kind) Dense {
	return Dense{Shape: shape, Data: make([]float64, shape.Size()), Kind: kind}
}

// Reshape wraps data with shape after checking the element count.
func Reshape(data []float64, shape Shape, kind Kind) (Dense, error) {
	if err := shape.Validate(); err != nil {
		return Dense{}, err
	}
	if len(data) != shape.Size() {
		return Dense{}, fmt.Errorf("cannot reshape %d values into %s (%d values)", len(data), shape, shape.Size())
	}
	return Dense{Shape: shape, Data: data, Kind: kind}, nil
}

// At returns the sample of channel c at flattened pixel index p.
func (d Dense) At(p, c int) float64 {
	return d.Data[p*d.Shape.Channels()+c]
}

// Set stores the sample of channel c at flattened pixel index p.
func (d Dense) Set(p, c int, v float64) {
	d.Data[p*d.Shape.Channels()+c] = v
}

// Pixels is a row-major (T,H,W,C) tensor of unsigned samples that fit in
// BitDepth bits.
type Pixels struct {
	Shape    Shape
	Data     []uint16
	BitDepth int
}

// NewPixels allocates a zero pixel tensor.
func NewPixels(shape Shape, bitDepth int) Pixels {
	return Pixels{Shape: shape, Data: make([]uint16, shape.Size()), BitDepth: bitDepth}
}

// At returns channel c of flattened pixel p.
func (p Pixels) At(pixel, c int) uint16 {
	return p.Data[pixel*p.Shape.Channels()+c]
}

// Set stores channel c of flattened pixel p.
func (p Pixels) Set(pixel, c int, v uint16) {
	p.Data[pixel*p.Shape.Channels()+c] = v
}

// Equal reports whether two pixel tensors share shape, depth, and samples.
func (p Pixels) Equal(other Pixels) bool {
	if p.Shape != other.Shape || p.BitDepth != other.BitDepth || len(p.Data) != len(other.Data) {
		return false
	}
	for i := range p.Data {
		if p.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// BytesPerSample returns 1 for 8-bit and 2 for 16-bit tensors.
func BytesPerSample(bitDepth int) int {
	if bitDepth > 8 {
		return 2
	}
	return 1
}
